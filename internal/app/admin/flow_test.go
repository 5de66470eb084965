package admin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/domain"
)

// --- Test mocks ---

type mockBus struct {
	mu     sync.Mutex
	events []app.CandidateEvent
}

func (b *mockBus) Publish(topic string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == app.TopicCandidateChanged {
		b.events = append(b.events, args[0].(app.CandidateEvent))
	}
}

type mockGateway struct {
	mu sync.Mutex

	candidates []domain.Candidate
	nextId     domain.CandidateId
	err        error
	release    chan struct{} // if set, DeleteCandidate blocks until closed

	calls []string
}

func (g *mockGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *mockGateway) callLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *mockGateway) GetCandidates(_ context.Context) ([]domain.Candidate, error) {
	g.record("list")
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Candidate(nil), g.candidates...), nil
}

func (g *mockGateway) AddCandidate(_ context.Context, form domain.CandidateForm) (*domain.Candidate, error) {
	g.record("add")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.nextId++
	c := domain.Candidate{Id: g.nextId, Name: form.Name}
	g.candidates = append(g.candidates, c)
	return &c, nil
}

func (g *mockGateway) UpdateCandidate(
	_ context.Context,
	id domain.CandidateId,
	form domain.CandidateForm,
) (*domain.Candidate, error) {
	g.record("update")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	for i := range g.candidates {
		if g.candidates[i].Id == id {
			g.candidates[i].Name = form.Name
			c := g.candidates[i]
			return &c, nil
		}
	}
	return nil, &domain.GatewayError{Code: 500, Reason: "Runtime Error", Message: "Candidate not found"}
}

func (g *mockGateway) DeleteCandidate(_ context.Context, id domain.CandidateId) (string, error) {
	g.record("delete")
	g.mu.Lock()
	release := g.release
	g.mu.Unlock()
	if release != nil {
		<-release
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	for i := range g.candidates {
		if g.candidates[i].Id == id {
			g.candidates = append(g.candidates[:i], g.candidates[i+1:]...)
			return "Candidate deleted", nil
		}
	}
	return "Candidate not found with id: " + id.String(), nil
}

type mockSessions struct {
	session *domain.Session
}

func (s mockSessions) Current() *domain.Session {
	return s.session
}

var adminSession = mockSessions{session: &domain.Session{Username: "admin", Role: domain.RoleAdmin, Id: 1}}

func alwaysConfirm(answer bool) ConfirmFunc {
	return func(string) bool { return answer }
}

func newMountedFlow(t *testing.T, gw *mockGateway, confirm bool) (*Flow, *mockBus) {
	t.Helper()
	bus := &mockBus{}
	f := NewFlow(gw, adminSession, alwaysConfirm(confirm), bus)
	f.Mount(context.Background())
	return f, bus
}

func seeded() *mockGateway {
	return &mockGateway{
		candidates: []domain.Candidate{{Id: 1, Name: "Alice", Votes: 3}, {Id: 2, Name: "Bob"}},
		nextId:     2,
	}
}

// --- Tests ---

func TestFlow_AccessDenied(t *testing.T) {
	tests := []struct {
		name     string
		sessions mockSessions
	}{
		{name: "logged out", sessions: mockSessions{}},
		{name: "regular user", sessions: mockSessions{session: &domain.Session{Username: "u", Role: domain.RoleUser}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := seeded()
			f := NewFlow(gw, tt.sessions, alwaysConfirm(true), &mockBus{})

			f.Mount(context.Background())
			f.OpenAddForm()
			f.SetNewName("Mallory")
			f.SubmitAdd(context.Background())
			f.Delete(context.Background(), 1)

			state := f.State()
			assert.True(t, state.AccessDenied)
			assert.Equal(t, MsgAccessDenied, state.Error)
			assert.Empty(t, gw.callLog())
		})
	}
}

func TestFlow_MountAndEmptyState(t *testing.T) {
	f, _ := newMountedFlow(t, &mockGateway{}, true)

	state := f.State()
	assert.False(t, state.AccessDenied)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Candidates)
}

func TestFlow_Add(t *testing.T) {
	gw := seeded()
	f, bus := newMountedFlow(t, gw, true)

	f.OpenAddForm()
	f.SetNewName("Carol")
	f.SubmitAdd(context.Background())

	state := f.State()
	assert.Equal(t, MsgAdded, state.Success)
	assert.Empty(t, state.Error)
	assert.False(t, state.AddFormOpen)
	assert.Empty(t, state.NewName)
	require.Len(t, state.Candidates, 3)
	assert.Equal(t, "Carol", state.Candidates[2].Name)
	assert.Equal(t, []string{"list", "add", "list"}, gw.callLog())

	require.Len(t, bus.events, 1)
	assert.Equal(t, app.CandidateEvent{Actor: "admin", Action: app.CandidateCreated,
		Candidate: domain.Candidate{Id: 3, Name: "Carol"}}, bus.events[0])
}

func TestFlow_AddBlankNameSkipsGateway(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		gw := seeded()
		f, _ := newMountedFlow(t, gw, true)

		f.OpenAddForm()
		f.SetNewName(name)
		f.SubmitAdd(context.Background())

		state := f.State()
		assert.Equal(t, "Candidate name is required", state.Error)
		assert.True(t, state.AddFormOpen)
		assert.Equal(t, []string{"list"}, gw.callLog())
	}
}

func TestFlow_AddFailureKeepsForm(t *testing.T) {
	gw := seeded()
	f, _ := newMountedFlow(t, gw, true)
	gw.err = &domain.GatewayError{Code: 602}

	f.OpenAddForm()
	f.SetNewName("Carol")
	f.SubmitAdd(context.Background())

	state := f.State()
	assert.Equal(t, MsgAddFailed, state.Error)
	assert.True(t, state.AddFormOpen)
	assert.Equal(t, "Carol", state.NewName)
	assert.False(t, state.Saving)
}

func TestFlow_CancelAddForm(t *testing.T) {
	f, _ := newMountedFlow(t, seeded(), true)

	f.OpenAddForm()
	f.SetNewName("half typed")
	f.CancelAddForm()

	state := f.State()
	assert.False(t, state.AddFormOpen)
	assert.Empty(t, state.NewName)
}

func TestFlow_Edit(t *testing.T) {
	gw := seeded()
	f, bus := newMountedFlow(t, gw, true)

	f.StartEdit(2)
	require.NotNil(t, f.State().Editing)
	assert.Equal(t, "Bob", f.State().Editing.Name)

	f.SetEditName("Robert")
	f.SubmitEdit(context.Background())

	state := f.State()
	assert.Nil(t, state.Editing)
	assert.Equal(t, MsgUpdated, state.Success)
	assert.Equal(t, "Robert", state.Candidates[1].Name)
	require.Len(t, bus.events, 1)
	assert.Equal(t, app.CandidateUpdated, bus.events[0].Action)
}

func TestFlow_EditFailures(t *testing.T) {
	tests := []struct {
		name    string
		id      domain.CandidateId
		newName string
		wantErr string
		calls   []string
	}{
		{
			name:    "blank name",
			id:      1,
			newName: "  ",
			wantErr: "Candidate name is required",
			calls:   []string{"list"},
		},
		{
			name:    "structured backend error",
			id:      99,
			newName: "Ghost",
			wantErr: "Candidate not found",
			calls:   []string{"list", "update"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := seeded()
			f, _ := newMountedFlow(t, gw, true)

			f.StartEdit(tt.id)
			f.SetEditName(tt.newName)
			f.SubmitEdit(context.Background())

			state := f.State()
			assert.Equal(t, tt.wantErr, state.Error)
			require.NotNil(t, state.Editing) // stays in edit mode
			assert.Equal(t, tt.newName, state.Editing.Name)
			assert.Equal(t, tt.calls, gw.callLog())
		})
	}
}

func TestFlow_CancelEdit(t *testing.T) {
	f, _ := newMountedFlow(t, seeded(), true)

	f.StartEdit(1)
	f.CancelEdit()
	assert.Nil(t, f.State().Editing)

	// submitting without an open form does nothing
	f.SubmitEdit(context.Background())
	assert.Empty(t, f.State().Error)
}

func TestFlow_Delete(t *testing.T) {
	gw := seeded()
	f, bus := newMountedFlow(t, gw, true)

	f.Delete(context.Background(), 1)

	state := f.State()
	assert.Equal(t, MsgDeleted, state.Success)
	assert.Empty(t, state.Deleting)
	require.Len(t, state.Candidates, 1)
	assert.Equal(t, "Bob", state.Candidates[0].Name)
	require.Len(t, bus.events, 1)
	assert.Equal(t, app.CandidateEvent{Actor: "admin", Action: app.CandidateDeleted,
		Candidate: domain.Candidate{Id: 1, Name: "Alice", Votes: 3}}, bus.events[0])
}

func TestFlow_DeleteNotConfirmed(t *testing.T) {
	gw := seeded()
	f, _ := newMountedFlow(t, gw, false)

	f.Delete(context.Background(), 1)

	assert.Equal(t, []string{"list"}, gw.callLog())
	assert.Len(t, f.State().Candidates, 2)
}

func TestFlow_DeleteMissingCandidateIsSuccess(t *testing.T) {
	gw := seeded()
	f, _ := newMountedFlow(t, gw, true)

	f.Delete(context.Background(), 42)

	assert.Equal(t, MsgDeleted, f.State().Success)
}

func TestFlow_DeleteFailure(t *testing.T) {
	gw := seeded()
	f, _ := newMountedFlow(t, gw, true)
	gw.err = &domain.GatewayError{Code: 500, Raw: "constraint violation"}

	f.Delete(context.Background(), 1)

	state := f.State()
	assert.Equal(t, "constraint violation", state.Error)
	assert.False(t, state.IsDeleting(1))
}

func TestFlow_DeleteTracksRow(t *testing.T) {
	release := make(chan struct{})
	gw := seeded()
	f, _ := newMountedFlow(t, gw, true)
	gw.mu.Lock()
	gw.release = release
	gw.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.Delete(context.Background(), 1)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.State().IsDeleting(1) }, time.Second, 5*time.Millisecond)
	state := f.State()
	assert.False(t, state.IsDeleting(2))

	// other rows stay interactive
	f.StartEdit(2)
	assert.NotNil(t, f.State().Editing)

	close(release)
	<-done
	assert.False(t, f.State().IsDeleting(1))
}

func TestFlow_NewActionClearsMessages(t *testing.T) {
	gw := seeded()
	f, _ := newMountedFlow(t, gw, true)

	f.OpenAddForm()
	f.SetNewName("")
	f.SubmitAdd(context.Background())
	require.NotEmpty(t, f.State().Error)

	f.SetNewName("Carol")
	f.SubmitAdd(context.Background())
	assert.Empty(t, f.State().Error)
	assert.Equal(t, MsgAdded, f.State().Success)

	f.DismissMessages()
	assert.Empty(t, f.State().Success)
}
