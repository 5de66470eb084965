package voting

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/domain"
)

const (
	MsgVoteCast      = "Vote cast successfully!"
	MsgAlreadyVoted  = "You have already voted!"
	MsgMissingUserId = "User ID not found. Please login again."
	MsgLoadFailed    = "Failed to load candidates"
	MsgVoteFailed    = "Failed to cast vote"
)

// State is a snapshot of the voting dashboard.
type State struct {
	Loading     bool
	Voting      bool
	ShowResults bool
	Candidates  domain.Snapshot

	// HasVoted is a local flag of this flow instance. It is not persisted and the backend remains the only
	// authority on whether a user has voted.
	HasVoted          bool
	SelectedCandidate *domain.CandidateId

	Error   string
	Success string
}

// CanVote reports whether vote actions are currently enabled.
func (s State) CanVote() bool {
	return !s.HasVoted && !s.Voting
}

// Flow is the state machine behind the voting dashboard.
type Flow struct {
	gw       Gateway
	sessions SessionSource
	bus      EventBus

	mux      sync.Mutex
	state    State
	inflight int // running candidate fetches
}

func NewFlow(gw Gateway, sessions SessionSource, bus EventBus) *Flow {
	return &Flow{
		gw:       gw,
		sessions: sessions,
		bus:      bus,
	}
}

// State returns a copy of the current state.
func (f *Flow) State() State {
	f.mux.Lock()
	defer f.mux.Unlock()

	s := f.state
	s.Candidates = slices.Clone(f.state.Candidates)
	if f.state.SelectedCandidate != nil {
		id := *f.state.SelectedCandidate
		s.SelectedCandidate = &id
	}
	return s
}

// Mount loads the initial candidate list.
func (f *Flow) Mount(ctx context.Context) {
	f.Refresh(ctx)
}

// Refresh fetches the full candidate list. Concurrent fetches are not coordinated, the response that
// arrives last wins.
func (f *Flow) Refresh(ctx context.Context) {
	f.mux.Lock()
	f.inflight++
	f.state.Loading = true
	f.mux.Unlock()

	candidates, err := f.gw.GetCandidates(ctx)

	f.mux.Lock()
	defer f.mux.Unlock()

	f.inflight--
	f.state.Loading = f.inflight > 0

	if err != nil {
		slog.Warn("failed to load candidates", "error", err)
		f.state.Error = domain.ErrorText(err, MsgLoadFailed)
		return
	}
	f.state.Candidates = candidates
	f.state.Error = ""
}

// ShowResults switches to the results view and fetches the latest tally.
func (f *Flow) ShowResults(ctx context.Context) {
	f.mux.Lock()
	f.state.ShowResults = true
	f.mux.Unlock()

	f.Refresh(ctx)
}

func (f *Flow) HideResults() {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.state.ShowResults = false
}

// CastVote votes for the given candidate with the identity of the current session. Once a vote was accepted
// or rejected as duplicate, or while a vote is in flight, no further request is sent.
func (f *Flow) CastVote(ctx context.Context, candidateId domain.CandidateId) {
	f.mux.Lock()
	if !f.state.CanVote() {
		hasVoted := f.state.HasVoted
		f.mux.Unlock()
		slog.Debug("vote action disabled", "candidate", candidateId, "has_voted", hasVoted)
		return
	}

	s := f.sessions.Current()
	if !s.HasIdentity() {
		f.state.Error = MsgMissingUserId
		f.state.Success = ""
		f.mux.Unlock()
		return
	}

	f.state.Voting = true
	f.state.Error = ""
	f.state.Success = ""
	f.mux.Unlock()

	outcome, err := f.gw.CastVote(ctx, s.Id, candidateId)

	f.mux.Lock()
	switch {
	case err != nil:
		slog.Warn("failed to cast vote", "candidate", candidateId, "error", err)
		f.state.Error = domain.ErrorText(err, MsgVoteFailed)
		f.state.Voting = false
		f.mux.Unlock()
		return
	case !outcome.IsAccepted():
		f.state.Error = MsgAlreadyVoted
		f.state.HasVoted = true
		f.state.Voting = false
		f.mux.Unlock()
	default:
		f.state.Success = MsgVoteCast
		f.state.HasVoted = true
		f.state.SelectedCandidate = &candidateId
		f.mux.Unlock()
	}

	f.bus.Publish(app.TopicVoteCast, app.VoteEvent{
		Username:    s.Username,
		UserId:      s.Id,
		CandidateId: candidateId,
		Result:      outcome.Result,
	})

	if outcome.IsAccepted() {
		// reload to show the new tally of the backend
		f.Refresh(ctx)

		f.mux.Lock()
		f.state.Voting = false
		f.mux.Unlock()
	}
}

// DismissMessages clears the error and success message.
func (f *Flow) DismissMessages() {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.state.Error = ""
	f.state.Success = ""
}
