package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/h44z/vote-portal/internal/config"
	"github.com/h44z/vote-portal/internal/domain"
	"github.com/h44z/vote-portal/internal/lowlevel"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type candidateRequest struct {
	Name string `json:"name"`
}

// VotingGateway exposes the REST surface of the voting backend with domain types. It is the only place that
// interprets sentinel strings, callers receive typed outcomes instead.
type VotingGateway struct {
	client *lowlevel.VotingApiClient
}

func NewVotingGateway(cfg *config.Config, observer lowlevel.RequestObserver) (*VotingGateway, error) {
	client, err := lowlevel.NewVotingApiClient(cfg, observer)
	if err != nil {
		return nil, fmt.Errorf("failed to create voting API client: %w", err)
	}

	return &VotingGateway{client: client}, nil
}

func toGatewayError(code int, apiErr *lowlevel.ApiError) error {
	if apiErr == nil {
		return &domain.GatewayError{Code: code}
	}
	if code >= lowlevel.ApiErrorCodeUnknown {
		// client side failure, the backend never answered
		return &domain.GatewayError{Code: code, Details: apiErr.Details}
	}

	return &domain.GatewayError{
		Code:    code,
		Raw:     apiErr.Raw,
		Reason:  apiErr.Reason,
		Message: apiErr.Message,
	}
}

func isSentinel(payload, sentinel string) bool {
	return strings.TrimSpace(payload) == sentinel
}

// region auth

// Register creates a new account. A taken username is reported through the outcome, not as error.
func (g *VotingGateway) Register(ctx context.Context, creds domain.Credentials) (domain.RegisterOutcome, error) {
	resp := lowlevel.Call[string](ctx, g.client, lowlevel.Request{
		Method: http.MethodPost,
		Route:  "/auth/register",
		Body:   credentialsRequest{Username: creds.Username, Password: creds.Password.Plain()},
	})
	if !resp.IsOk() {
		return domain.RegisterOutcome{}, toGatewayError(resp.Code, resp.Error)
	}

	if isSentinel(resp.Data, domain.SentinelUsernameTaken) {
		return domain.RegisterOutcome{UsernameTaken: true}, nil
	}

	return domain.RegisterOutcome{Message: resp.Data}, nil
}

// Login checks the credentials. On success the backend answers with the role of the account.
func (g *VotingGateway) Login(ctx context.Context, creds domain.Credentials) (domain.LoginOutcome, error) {
	resp := lowlevel.Call[string](ctx, g.client, lowlevel.Request{
		Method: http.MethodPost,
		Route:  "/auth/login",
		Body:   credentialsRequest{Username: creds.Username, Password: creds.Password.Plain()},
	})
	if !resp.IsOk() {
		return domain.LoginOutcome{}, toGatewayError(resp.Code, resp.Error)
	}

	if isSentinel(resp.Data, domain.SentinelInvalidCredentials) {
		return domain.LoginOutcome{InvalidCredentials: true}, nil
	}

	// any other payload is taken as role, the backend does not send anything more specific
	return domain.LoginOutcome{Role: domain.Role(strings.TrimSpace(resp.Data))}, nil
}

// endregion auth

// region candidates

func (g *VotingGateway) GetCandidates(ctx context.Context) ([]domain.Candidate, error) {
	resp := lowlevel.Call[[]domain.Candidate](ctx, g.client, lowlevel.Request{
		Method: http.MethodGet,
		Route:  "/candidates",
	})
	if !resp.IsOk() {
		return nil, toGatewayError(resp.Code, resp.Error)
	}
	if resp.Data == nil {
		return []domain.Candidate{}, nil
	}

	return resp.Data, nil
}

func (g *VotingGateway) AddCandidate(ctx context.Context, form domain.CandidateForm) (*domain.Candidate, error) {
	resp := lowlevel.Call[domain.Candidate](ctx, g.client, lowlevel.Request{
		Method: http.MethodPost,
		Route:  "/candidates/add",
		Body:   candidateRequest{Name: form.Name},
	})
	if !resp.IsOk() {
		return nil, toGatewayError(resp.Code, resp.Error)
	}

	return &resp.Data, nil
}

func (g *VotingGateway) UpdateCandidate(
	ctx context.Context,
	id domain.CandidateId,
	form domain.CandidateForm,
) (*domain.Candidate, error) {
	resp := lowlevel.Call[domain.Candidate](ctx, g.client, lowlevel.Request{
		Method:     http.MethodPut,
		Route:      "/candidates/update/{id}",
		PathParams: map[string]string{"id": id.String()},
		Body:       candidateRequest{Name: form.Name},
	})
	if !resp.IsOk() {
		return nil, toGatewayError(resp.Code, resp.Error)
	}

	return &resp.Data, nil
}

// DeleteCandidate removes a candidate and returns the status text of the backend.
func (g *VotingGateway) DeleteCandidate(ctx context.Context, id domain.CandidateId) (string, error) {
	resp := lowlevel.Call[string](ctx, g.client, lowlevel.Request{
		Method:     http.MethodDelete,
		Route:      "/candidates/delete/{id}",
		PathParams: map[string]string{"id": id.String()},
	})
	if !resp.IsOk() {
		return "", toGatewayError(resp.Code, resp.Error)
	}

	return resp.Data, nil
}

// endregion candidates

// region voting

// CastVote records a vote. A second vote of the same user is reported as VoteAlreadyCast outcome.
func (g *VotingGateway) CastVote(
	ctx context.Context,
	userId domain.UserId,
	candidateId domain.CandidateId,
) (domain.VoteOutcome, error) {
	resp := lowlevel.Call[string](ctx, g.client, lowlevel.Request{
		Method: http.MethodPost,
		Route:  "/vote/{userId}/{candidateId}",
		PathParams: map[string]string{
			"userId":      strconv.FormatInt(int64(userId), 10),
			"candidateId": candidateId.String(),
		},
	})
	if !resp.IsOk() {
		return domain.VoteOutcome{}, toGatewayError(resp.Code, resp.Error)
	}

	if isSentinel(resp.Data, domain.SentinelAlreadyVoted) {
		return domain.VoteOutcome{Result: domain.VoteAlreadyCast, Message: resp.Data}, nil
	}

	return domain.VoteOutcome{Result: domain.VoteAccepted, Message: resp.Data}, nil
}

func (g *VotingGateway) GetResults(ctx context.Context) ([]domain.Candidate, error) {
	resp := lowlevel.Call[[]domain.Candidate](ctx, g.client, lowlevel.Request{
		Method: http.MethodGet,
		Route:  "/vote/results",
	})
	if !resp.IsOk() {
		return nil, toGatewayError(resp.Code, resp.Error)
	}
	if resp.Data == nil {
		return []domain.Candidate{}, nil
	}

	return resp.Data, nil
}

// endregion voting

// Ping reports whether the backend is reachable. It issues an unauthenticated read of the candidate list.
func (g *VotingGateway) Ping(ctx context.Context) bool {
	_, err := g.GetCandidates(ctx)
	return err == nil
}
