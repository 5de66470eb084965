package admin

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/domain"
)

const (
	MsgAdded         = "Candidate added successfully!"
	MsgUpdated       = "Candidate updated successfully!"
	MsgDeleted       = "Candidate deleted successfully!"
	MsgLoadFailed    = "Failed to load candidates"
	MsgAddFailed     = "Failed to add candidate"
	MsgUpdateFailed  = "Failed to update candidate"
	MsgDeleteFailed  = "Failed to delete candidate"
	MsgAccessDenied  = "You need administrator privileges to access this page."
	MsgConfirmDelete = "Are you sure you want to delete this candidate?"
)

// Edit is the inline edit form of a single candidate.
type Edit struct {
	Id   domain.CandidateId
	Name string
}

// State is a snapshot of the admin panel.
type State struct {
	AccessDenied bool
	Loading      bool
	Saving       bool
	Candidates   domain.Snapshot

	AddFormOpen bool
	NewName     string
	Editing     *Edit
	Deleting    []domain.CandidateId // rows with a delete request in flight

	Error   string
	Success string
}

// IsDeleting reports whether a delete request for the given candidate is in flight.
func (s State) IsDeleting(id domain.CandidateId) bool {
	return slices.Contains(s.Deleting, id)
}

// Flow is the state machine behind the candidate administration. Every action is refused without a network
// call unless the current session belongs to an administrator.
type Flow struct {
	gw        Gateway
	sessions  SessionSource
	confirmer Confirmer
	bus       EventBus

	mux      sync.Mutex
	state    State
	inflight int
	deleting map[domain.CandidateId]struct{}
}

func NewFlow(gw Gateway, sessions SessionSource, confirmer Confirmer, bus EventBus) *Flow {
	return &Flow{
		gw:        gw,
		sessions:  sessions,
		confirmer: confirmer,
		bus:       bus,
		deleting:  make(map[domain.CandidateId]struct{}),
	}
}

// State returns a copy of the current state.
func (f *Flow) State() State {
	f.mux.Lock()
	defer f.mux.Unlock()

	s := f.state
	s.AccessDenied = !f.sessions.Current().IsAdmin()
	s.Candidates = slices.Clone(f.state.Candidates)
	if f.state.Editing != nil {
		e := *f.state.Editing
		s.Editing = &e
	}
	s.Deleting = slices.Sorted(maps.Keys(f.deleting))
	return s
}

// allowed must be called with the lock held.
func (f *Flow) allowed() bool {
	if f.sessions.Current().IsAdmin() {
		return true
	}
	slog.Debug("admin action refused", "error", domain.ErrNoPermission)
	f.state.Error = MsgAccessDenied
	f.state.Success = ""
	return false
}

func (f *Flow) actor() string {
	if s := f.sessions.Current(); s != nil {
		return s.Username
	}
	return ""
}

func (f *Flow) Mount(ctx context.Context) {
	f.Refresh(ctx)
}

// Refresh fetches the candidate list.
func (f *Flow) Refresh(ctx context.Context) {
	f.mux.Lock()
	if !f.allowed() {
		f.mux.Unlock()
		return
	}
	f.inflight++
	f.state.Loading = true
	f.mux.Unlock()

	f.fetch(ctx)
}

func (f *Flow) fetch(ctx context.Context) {
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

// reload re-fetches the list after a successful mutation. The list is marked as loading right away.
func (f *Flow) reload(ctx context.Context) {
	f.mux.Lock()
	f.inflight++
	f.state.Loading = true
	f.mux.Unlock()

	f.fetch(ctx)
}

// region add

func (f *Flow) OpenAddForm() {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.state.AddFormOpen = true
}

func (f *Flow) CancelAddForm() {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.state.AddFormOpen = false
	f.state.NewName = ""
}

func (f *Flow) SetNewName(name string) {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.state.NewName = name
}

// SubmitAdd creates a candidate from the add form. On failure the form stays open with its input.
func (f *Flow) SubmitAdd(ctx context.Context) {
	f.mux.Lock()
	if !f.allowed() || f.state.Saving {
		f.mux.Unlock()
		return
	}
	f.clearMessages()

	form := domain.CandidateForm{Name: f.state.NewName}
	if err := form.Validate(); err != nil {
		f.state.Error = domain.ErrorText(err, MsgAddFailed)
		f.mux.Unlock()
		return
	}
	f.state.Saving = true
	actor := f.actor()
	f.mux.Unlock()

	created, err := f.gw.AddCandidate(ctx, form)

	f.mux.Lock()
	f.state.Saving = false
	if err != nil {
		slog.Warn("failed to add candidate", "name", form.Name, "error", err)
		f.state.Error = domain.ErrorText(err, MsgAddFailed)
		f.mux.Unlock()
		return
	}
	f.state.Success = MsgAdded
	f.state.NewName = ""
	f.state.AddFormOpen = false
	f.mux.Unlock()

	f.bus.Publish(app.TopicCandidateChanged, app.CandidateEvent{
		Actor: actor, Action: app.CandidateCreated, Candidate: *created,
	})

	f.reload(ctx)
}

// endregion add

// region edit

// StartEdit opens the inline edit form for the given candidate, prefilled with its current name.
func (f *Flow) StartEdit(id domain.CandidateId) {
	f.mux.Lock()
	defer f.mux.Unlock()

	name := ""
	if c, ok := f.state.Candidates.Find(id); ok {
		name = c.Name
	}
	f.state.Editing = &Edit{Id: id, Name: name}
}

func (f *Flow) SetEditName(name string) {
	f.mux.Lock()
	defer f.mux.Unlock()

	if f.state.Editing != nil {
		f.state.Editing.Name = name
	}
}

func (f *Flow) CancelEdit() {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.state.Editing = nil
}

// SubmitEdit renames the candidate of the open edit form. On failure the edit form stays open.
func (f *Flow) SubmitEdit(ctx context.Context) {
	f.mux.Lock()
	if f.state.Editing == nil || !f.allowed() || f.state.Saving {
		f.mux.Unlock()
		return
	}
	f.clearMessages()

	edit := *f.state.Editing
	form := domain.CandidateForm{Name: edit.Name}
	if err := form.Validate(); err != nil {
		f.state.Error = domain.ErrorText(err, MsgUpdateFailed)
		f.mux.Unlock()
		return
	}
	f.state.Saving = true
	actor := f.actor()
	f.mux.Unlock()

	updated, err := f.gw.UpdateCandidate(ctx, edit.Id, form)

	f.mux.Lock()
	f.state.Saving = false
	if err != nil {
		slog.Warn("failed to update candidate", "id", edit.Id, "error", err)
		f.state.Error = domain.ErrorText(err, MsgUpdateFailed)
		f.mux.Unlock()
		return
	}
	f.state.Success = MsgUpdated
	f.state.Editing = nil
	f.mux.Unlock()

	f.bus.Publish(app.TopicCandidateChanged, app.CandidateEvent{
		Actor: actor, Action: app.CandidateUpdated, Candidate: *updated,
	})

	f.reload(ctx)
}

// endregion edit

// region delete

// Delete removes a candidate after the user confirmed it. Other rows stay usable while the request is in
// flight.
func (f *Flow) Delete(ctx context.Context, id domain.CandidateId) {
	f.mux.Lock()
	if !f.allowed() {
		f.mux.Unlock()
		return
	}
	if _, busy := f.deleting[id]; busy {
		f.mux.Unlock()
		return
	}
	f.mux.Unlock()

	if !f.confirmer.Confirm(MsgConfirmDelete) {
		return
	}

	f.mux.Lock()
	f.clearMessages()
	f.deleting[id] = struct{}{}
	candidate, ok := f.state.Candidates.Find(id)
	if !ok {
		candidate = domain.Candidate{Id: id}
	}
	actor := f.actor()
	f.mux.Unlock()

	status, err := f.gw.DeleteCandidate(ctx, id)
	if err != nil {
		slog.Warn("failed to delete candidate", "id", id, "error", err)

		f.mux.Lock()
		delete(f.deleting, id)
		f.state.Error = domain.ErrorText(err, MsgDeleteFailed)
		f.mux.Unlock()
		return
	}
	slog.Debug("candidate deleted", "id", id, "status", status)

	f.mux.Lock()
	f.state.Success = MsgDeleted
	f.mux.Unlock()

	f.bus.Publish(app.TopicCandidateChanged, app.CandidateEvent{
		Actor: actor, Action: app.CandidateDeleted, Candidate: candidate,
	})

	f.reload(ctx)

	f.mux.Lock()
	delete(f.deleting, id)
	f.mux.Unlock()
}

// endregion delete

// DismissMessages clears the error and success message.
func (f *Flow) DismissMessages() {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.clearMessages()
}

func (f *Flow) clearMessages() {
	f.state.Error = ""
	f.state.Success = ""
}
