package console

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h44z/vote-portal/internal/adapters"
	"github.com/h44z/vote-portal/internal/app/admin"
	"github.com/h44z/vote-portal/internal/app/auth"
	"github.com/h44z/vote-portal/internal/app/monitor"
	"github.com/h44z/vote-portal/internal/app/session"
	"github.com/h44z/vote-portal/internal/app/voting"
	"github.com/h44z/vote-portal/internal/config"
	"github.com/h44z/vote-portal/internal/domain"
)

// --- Test mocks ---

type nopBus struct{}

func (nopBus) Publish(string, ...any) {}

type fakeMonitor struct {
	mu          sync.Mutex
	status      domain.BackendStatus
	checking    int // number of Info calls that report the checking state first
	afterRetry  domain.BackendStatus
	retries     int
	lastChecked time.Time
	// recoverAfter switches an unreachable backend to reachable after that many Info calls, like a
	// successful background poll.
	recoverAfter int
}

func (m *fakeMonitor) Info() monitor.Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.checking > 0 {
		m.checking--
		return monitor.Info{Status: domain.BackendChecking}
	}
	if m.status == domain.BackendUnreachable && m.recoverAfter > 0 {
		m.recoverAfter--
		if m.recoverAfter == 0 {
			m.status = domain.BackendReachable
		}
	}
	return monitor.Info{Status: m.status, LastChecked: m.lastChecked}
}

func (m *fakeMonitor) Retry(_ context.Context) domain.BackendStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.retries++
	m.status = m.afterRetry
	return m.status
}

type fakeGateway struct {
	mu         sync.Mutex
	roles      map[string]domain.Role
	candidates []domain.Candidate
	voters     map[domain.UserId]bool
	votes      []domain.CandidateId
	deleted    []domain.CandidateId
	nextId     domain.CandidateId
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		roles: map[string]domain.Role{"alice": domain.RoleUser, "admin": domain.RoleAdmin},
		candidates: []domain.Candidate{
			{Id: 1, Name: "Alice", Votes: 1},
			{Id: 2, Name: "Bob", Votes: 3},
		},
		voters: map[domain.UserId]bool{},
		nextId: 3,
	}
}

func (g *fakeGateway) Login(_ context.Context, creds domain.Credentials) (domain.LoginOutcome, error) {
	role, ok := g.roles[creds.Username]
	if !ok {
		return domain.LoginOutcome{InvalidCredentials: true}, nil
	}
	return domain.LoginOutcome{Role: role}, nil
}

func (g *fakeGateway) Register(_ context.Context, creds domain.Credentials) (domain.RegisterOutcome, error) {
	if _, ok := g.roles[creds.Username]; ok {
		return domain.RegisterOutcome{UsernameTaken: true}, nil
	}
	g.roles[creds.Username] = domain.RoleUser
	return domain.RegisterOutcome{Message: "User registered successfully!"}, nil
}

func (g *fakeGateway) GetCandidates(_ context.Context) ([]domain.Candidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Candidate(nil), g.candidates...), nil
}

func (g *fakeGateway) AddCandidate(_ context.Context, form domain.CandidateForm) (*domain.Candidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := domain.Candidate{Id: g.nextId, Name: form.Name}
	g.nextId++
	g.candidates = append(g.candidates, c)
	return &c, nil
}

func (g *fakeGateway) UpdateCandidate(
	_ context.Context,
	id domain.CandidateId,
	form domain.CandidateForm,
) (*domain.Candidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.candidates {
		if g.candidates[i].Id == id {
			g.candidates[i].Name = form.Name
			c := g.candidates[i]
			return &c, nil
		}
	}
	return nil, &domain.GatewayError{Code: 500, Message: fmt.Sprintf("Candidate not found with id: %d", id)}
}

func (g *fakeGateway) DeleteCandidate(_ context.Context, id domain.CandidateId) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, id)
	for i := range g.candidates {
		if g.candidates[i].Id == id {
			g.candidates = append(g.candidates[:i], g.candidates[i+1:]...)
			break
		}
	}
	return "Candidate deleted successfully", nil
}

func (g *fakeGateway) CastVote(
	_ context.Context,
	userId domain.UserId,
	candidateId domain.CandidateId,
) (domain.VoteOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.voters[userId] {
		return domain.VoteOutcome{Result: domain.VoteAlreadyCast, Message: domain.SentinelAlreadyVoted}, nil
	}
	g.voters[userId] = true
	g.votes = append(g.votes, candidateId)
	for i := range g.candidates {
		if g.candidates[i].Id == candidateId {
			g.candidates[i].Votes++
		}
	}
	return domain.VoteOutcome{Result: domain.VoteAccepted, Message: "Vote cast successfully!"}, nil
}

type shellFixture struct {
	gw       *fakeGateway
	mon      *fakeMonitor
	sessions *session.Manager
	out      *bytes.Buffer
}

func newShellFixture(t *testing.T) *shellFixture {
	t.Helper()

	store, err := adapters.NewFileSystemRepository(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{Session: config.SessionConfig{Key: config.DefaultSessionKey}}

	return &shellFixture{
		gw:       newFakeGateway(),
		mon:      &fakeMonitor{status: domain.BackendReachable},
		sessions: session.NewManager(cfg, store, nopBus{}),
		out:      &bytes.Buffer{},
	}
}

func (f *shellFixture) login(t *testing.T, identity domain.Identity) {
	t.Helper()
	_, err := f.sessions.Login(context.Background(), identity)
	require.NoError(t, err)
}

func (f *shellFixture) pages() Pages {
	return Pages{
		Auth: func() AuthFlow { return auth.NewFlow(f.gw, f.sessions, nopBus{}) },
		Voting: func() VotingFlow {
			return voting.NewFlow(f.gw, f.sessions, nopBus{})
		},
		Admin: func(confirmer admin.Confirmer) AdminFlow {
			return admin.NewFlow(f.gw, f.sessions, confirmer, nopBus{})
		},
	}
}

func (f *shellFixture) run(t *testing.T, input ...string) string {
	t.Helper()

	shell := NewShell(strings.NewReader(strings.Join(input, "\n")+"\n"), f.out, f.sessions, f.mon, f.pages())
	shell.PollInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, shell.Run(ctx))
	return f.out.String()
}

// --- Tests ---

func TestShell_LoginAndVote(t *testing.T) {
	f := newShellFixture(t)

	out := f.run(t, "login alice secret", "vote 1", "vote 2", "quit")

	assert.Contains(t, out, "Sign In")
	assert.Contains(t, out, auth.MsgLoginComplete)
	assert.Contains(t, out, "Welcome, alice!")
	assert.Contains(t, out, voting.MsgVoteCast)
	assert.Contains(t, out, "(your vote)")
	assert.Equal(t, []domain.CandidateId{1}, f.gw.votes, "second vote must not reach the backend")
	require.NotNil(t, f.sessions.Current())
	assert.Equal(t, "alice", f.sessions.Current().Username)
}

func TestShell_InvalidLogin(t *testing.T) {
	f := newShellFixture(t)

	out := f.run(t, "login mallory wrong", "quit")

	assert.Contains(t, out, "ERROR: "+auth.MsgInvalidCredentials)
	assert.Nil(t, f.sessions.Current())
	assert.NotContains(t, out, "Voting Dashboard")
}

func TestShell_PromptsForCredentials(t *testing.T) {
	f := newShellFixture(t)

	out := f.run(t, "register", "carol", "pw", "login", "carol", "pw")

	assert.Contains(t, out, "Username: ")
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, auth.MsgRegistrationComplete)
	assert.Contains(t, out, "Welcome, carol!")
}

func TestShell_AlreadyVoted(t *testing.T) {
	f := newShellFixture(t)
	f.login(t, domain.Identity{Username: "alice", Role: domain.RoleUser, Id: 42})
	f.gw.voters[42] = true

	out := f.run(t, "vote 2", "quit")

	assert.Contains(t, out, "ERROR: "+voting.MsgAlreadyVoted)
	assert.Contains(t, out, "Voting is closed for this session.")
	assert.Empty(t, f.gw.votes)
}

func TestShell_Results(t *testing.T) {
	f := newShellFixture(t)
	f.login(t, domain.Identity{Username: "alice", Role: domain.RoleUser, Id: 42})

	out := f.run(t, "results", "quit")

	assert.Contains(t, out, "SHARE")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "leading")
}

func TestShell_InvalidInput(t *testing.T) {
	f := newShellFixture(t)
	f.login(t, domain.Identity{Username: "alice", Role: domain.RoleUser, Id: 42})

	out := f.run(t, "vote abc", "vote", "dance", "quit")

	assert.Contains(t, out, `ERROR: invalid candidate id "abc"`)
	assert.Contains(t, out, "ERROR: missing candidate id")
	assert.Contains(t, out, `ERROR: unknown command "dance"`)
	assert.Empty(t, f.gw.votes)
}

func TestShell_AdminRequiresAdministrator(t *testing.T) {
	f := newShellFixture(t)
	f.login(t, domain.Identity{Username: "alice", Role: domain.RoleUser, Id: 42})

	out := f.run(t, "admin", "delete 1", "quit")

	assert.Contains(t, out, "Access Denied")
	assert.Contains(t, out, admin.MsgAccessDenied)
	assert.Empty(t, f.gw.deleted, "delete is a dashboard command for regular users")
}

func TestShell_AdminCandidateManagement(t *testing.T) {
	f := newShellFixture(t)
	f.login(t, domain.Identity{Username: "admin", Role: domain.RoleAdmin, Id: 1})

	out := f.run(t,
		"admin",
		"add Carol Smith",
		"rename 1 Alicia",
		"delete 2", "n",
		"delete 2", "yes",
		"back",
		"quit",
	)

	assert.Contains(t, out, "Admin Panel")
	assert.Contains(t, out, admin.MsgAdded)
	assert.Contains(t, out, admin.MsgUpdated)
	assert.Contains(t, out, admin.MsgConfirmDelete+" [y/N]")
	assert.Contains(t, out, admin.MsgDeleted)
	assert.Equal(t, []domain.CandidateId{2}, f.gw.deleted, "declined delete must not reach the backend")

	names := make([]string, 0)
	for _, c := range f.gw.candidates {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Alicia", "Carol Smith"}, names)
	assert.Contains(t, out, "Voting Dashboard")
}

func TestShell_Logout(t *testing.T) {
	f := newShellFixture(t)
	f.login(t, domain.Identity{Username: "alice", Role: domain.RoleUser, Id: 42})

	out := f.run(t, "logout", "quit")

	assert.Contains(t, out, "Logged out.")
	assert.Nil(t, f.sessions.Current())
	assert.Equal(t, 1, strings.Count(out, "Sign In"))
}

func TestShell_UnreachableBackend(t *testing.T) {
	f := newShellFixture(t)
	f.mon.status = domain.BackendUnreachable
	f.mon.afterRetry = domain.BackendReachable

	out := f.run(t, "help", "retry", "quit")

	assert.Equal(t, 2, strings.Count(out, "Backend Unavailable"))
	assert.Equal(t, 1, f.mon.retries)
	assert.Contains(t, out, "Sign In")
}

func TestShell_RecoversWithoutInput(t *testing.T) {
	f := newShellFixture(t)
	f.mon.status = domain.BackendUnreachable
	f.mon.recoverAfter = 3

	in, input := io.Pipe()
	loginPage := make(chan struct{})
	pages := f.pages()
	newAuth := pages.Auth
	pages.Auth = func() AuthFlow {
		close(loginPage)
		return newAuth()
	}

	shell := NewShell(in, f.out, f.sessions, f.mon, pages)
	shell.PollInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		select {
		case <-loginPage:
			_, _ = input.Write([]byte("quit\n"))
		case <-ctx.Done():
		}
		_ = input.Close()
	}()

	require.NoError(t, shell.Run(ctx))

	out := f.out.String()
	assert.Equal(t, 1, strings.Count(out, "Backend Unavailable"))
	assert.Equal(t, 0, f.mon.retries)
	assert.Contains(t, out, "Sign In")
}

func TestShell_QuitWhileUnreachable(t *testing.T) {
	f := newShellFixture(t)
	f.mon.status = domain.BackendUnreachable

	out := f.run(t, "quit", "login alice secret")

	assert.Contains(t, out, "Backend Unavailable")
	assert.NotContains(t, out, "Sign In")
	assert.Nil(t, f.sessions.Current())
}

func TestShell_WaitsForFirstProbe(t *testing.T) {
	f := newShellFixture(t)
	f.mon.checking = 3

	out := f.run(t, "quit")

	assert.Equal(t, 1, strings.Count(out, "Checking backend connection..."))
	assert.Contains(t, out, "Sign In")
}

func TestShell_EndOfInput(t *testing.T) {
	f := newShellFixture(t)

	out := f.run(t, "help")

	assert.Contains(t, out, "register [username] [password]")
}
