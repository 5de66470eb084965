package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/h44z/vote-portal/internal/app"
	"github.com/h44z/vote-portal/internal/domain"
)

type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

const (
	MsgInvalidCredentials   = "Invalid username or password"
	MsgUsernameTaken        = "Username already exists"
	MsgRegistrationComplete = "Registration successful! Please login."
	MsgLoginComplete        = "Login successful!"
	MsgLoginFailed          = "Login failed"
	MsgRegistrationFailed   = "Registration failed"
)

// State is a snapshot of the login/registration form.
type State struct {
	Mode       Mode
	Username   string
	Password   domain.PrivateString
	Submitting bool
	LoggedIn   bool

	Error   string
	Success string
}

// Flow is the state machine behind the login and registration form.
type Flow struct {
	gw       Gateway
	sessions SessionManager
	bus      EventBus

	mux   sync.Mutex
	state State
}

func NewFlow(gw Gateway, sessions SessionManager, bus EventBus) *Flow {
	return &Flow{
		gw:       gw,
		sessions: sessions,
		bus:      bus,
		state:    State{Mode: ModeLogin},
	}
}

func (f *Flow) State() State {
	f.mux.Lock()
	defer f.mux.Unlock()

	return f.state
}

// SetUsername updates the username field. Editing a field dismisses all messages.
func (f *Flow) SetUsername(username string) {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.state.Username = username
	f.clearMessages()
}

// SetPassword updates the password field. Editing a field dismisses all messages.
func (f *Flow) SetPassword(password string) {
	f.mux.Lock()
	defer f.mux.Unlock()

	f.state.Password = domain.PrivateString(password)
	f.clearMessages()
}

// ToggleMode switches between login and registration and resets the form.
func (f *Flow) ToggleMode() {
	f.mux.Lock()
	defer f.mux.Unlock()

	if f.state.Mode == ModeLogin {
		f.state.Mode = ModeRegister
	} else {
		f.state.Mode = ModeLogin
	}
	f.resetForm()
	f.clearMessages()
}

// Submit sends the form in the current mode. Submissions while a request is in flight are ignored.
func (f *Flow) Submit(ctx context.Context) {
	f.mux.Lock()
	if f.state.Submitting {
		f.mux.Unlock()
		slog.Debug("ignoring auth submit", "error", domain.ErrBusy)
		return
	}
	f.clearMessages()

	mode := f.state.Mode
	creds := domain.Credentials{Username: f.state.Username, Password: f.state.Password}
	if err := creds.Validate(); err != nil {
		f.state.Error = domain.ErrorText(err, MsgLoginFailed)
		f.mux.Unlock()
		return
	}
	f.state.Submitting = true
	f.mux.Unlock()

	if mode == ModeLogin {
		f.login(ctx, creds)
	} else {
		f.register(ctx, creds)
	}
}

func (f *Flow) login(ctx context.Context, creds domain.Credentials) {
	outcome, err := f.gw.Login(ctx, creds)

	f.mux.Lock()
	defer f.mux.Unlock()
	f.state.Submitting = false

	switch {
	case err != nil:
		slog.Warn("login request failed", "username", creds.Username, "error", err)
		f.state.Error = domain.ErrorText(err, MsgLoginFailed)
		f.bus.Publish(app.TopicAuthFailed, app.AuthEvent{Username: creds.Username, Action: "login",
			Error: err.Error()})
	case outcome.InvalidCredentials:
		f.state.Error = MsgInvalidCredentials
		f.bus.Publish(app.TopicAuthFailed, app.AuthEvent{Username: creds.Username, Action: "login",
			Error: MsgInvalidCredentials})
	default:
		// the backend returns no user id, the session derives one locally
		identity := domain.Identity{Username: creds.Username, Role: outcome.Role}
		if _, err := f.sessions.Login(ctx, identity); err != nil {
			slog.Warn("session could not be persisted", "username", creds.Username, "error", err)
		}
		f.state.LoggedIn = true
		f.state.Success = MsgLoginComplete
		slog.Debug("login successful", "username", creds.Username, "role", outcome.Role)
	}
}

func (f *Flow) register(ctx context.Context, creds domain.Credentials) {
	outcome, err := f.gw.Register(ctx, creds)

	f.mux.Lock()
	defer f.mux.Unlock()
	f.state.Submitting = false

	switch {
	case err != nil:
		slog.Warn("registration request failed", "username", creds.Username, "error", err)
		f.state.Error = domain.ErrorText(err, MsgRegistrationFailed)
		f.bus.Publish(app.TopicAuthFailed, app.AuthEvent{Username: creds.Username, Action: "register",
			Error: err.Error()})
	case outcome.UsernameTaken:
		f.state.Error = MsgUsernameTaken
		f.bus.Publish(app.TopicAuthFailed, app.AuthEvent{Username: creds.Username, Action: "register",
			Error: MsgUsernameTaken})
	default:
		f.state.Mode = ModeLogin
		f.resetForm()
		f.state.Success = MsgRegistrationComplete
		f.bus.Publish(app.TopicUserRegistered, app.AuthEvent{Username: creds.Username, Action: "register"})
		slog.Debug("registration successful", "username", creds.Username)
	}
}

func (f *Flow) resetForm() {
	f.state.Username = ""
	f.state.Password = ""
}

func (f *Flow) clearMessages() {
	f.state.Error = ""
	f.state.Success = ""
}
