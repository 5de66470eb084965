package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/h44z/vote-portal/internal/app/admin"
	"github.com/h44z/vote-portal/internal/app/auth"
	"github.com/h44z/vote-portal/internal/app/monitor"
	"github.com/h44z/vote-portal/internal/app/voting"
	"github.com/h44z/vote-portal/internal/domain"
)

type SessionManager interface {
	// Current returns the active session or nil.
	Current() *domain.Session
	// Logout removes the active session.
	Logout(ctx context.Context) error
}

type Monitor interface {
	Info() monitor.Info
	Retry(ctx context.Context) domain.BackendStatus
}

type AuthFlow interface {
	State() auth.State
	SetUsername(username string)
	SetPassword(password string)
	ToggleMode()
	Submit(ctx context.Context)
}

type VotingFlow interface {
	State() voting.State
	Mount(ctx context.Context)
	Refresh(ctx context.Context)
	ShowResults(ctx context.Context)
	HideResults()
	CastVote(ctx context.Context, candidateId domain.CandidateId)
	DismissMessages()
}

type AdminFlow interface {
	State() admin.State
	Mount(ctx context.Context)
	Refresh(ctx context.Context)
	OpenAddForm()
	SetNewName(name string)
	SubmitAdd(ctx context.Context)
	StartEdit(id domain.CandidateId)
	SetEditName(name string)
	SubmitEdit(ctx context.Context)
	Delete(ctx context.Context, id domain.CandidateId)
	DismissMessages()
}

// Pages creates a fresh flow every time a page is entered, so page local state like the has-voted flag is
// dropped when the page is left.
type Pages struct {
	Auth   func() AuthFlow
	Voting func() VotingFlow
	Admin  func(confirmer admin.Confirmer) AdminFlow
}

type page int

const (
	pageNone page = iota
	pageAuth
	pageDashboard
	pageAdmin
)

var prompts = map[page]string{
	pageAuth:      "login> ",
	pageDashboard: "vote> ",
	pageAdmin:     "admin> ",
}

var errQuit = errors.New("quit")

// Shell is the interactive line based user interface. Every command is gated in order: the backend must be
// reachable, a session must exist, and admin pages require an administrator session.
type Shell struct {
	in       *bufio.Scanner
	r        *Renderer
	sessions SessionManager
	monitor  Monitor
	pages    Pages

	// PollInterval is the delay between two connectivity checks while the shell waits for the backend.
	PollInterval time.Duration

	lines   chan string
	done    <-chan struct{}
	scanMux sync.Mutex
	scanErr error

	page   page
	auth   AuthFlow
	voting VotingFlow
	admin  AdminFlow
}

func NewShell(in io.Reader, out io.Writer, sessions SessionManager, mon Monitor, pages Pages) *Shell {
	return &Shell{
		in:           bufio.NewScanner(in),
		r:            NewRenderer(out),
		sessions:     sessions,
		monitor:      mon,
		pages:        pages,
		PollInterval: 100 * time.Millisecond,
	}
}

// Run processes commands until the input ends, the user quits or the context is done.
func (s *Shell) Run(ctx context.Context) error {
	s.lines = make(chan string)
	s.done = ctx.Done()
	go s.scan(ctx.Done())

	for {
		if !s.awaitBackend(ctx) {
			return s.err()
		}
		s.syncPage(ctx)

		s.r.printf("%s", prompts[s.page])
		line, ok := s.readLine()
		if !ok {
			return s.err()
		}

		if err := s.execute(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.r.Messages(err.Error(), "")
		}
	}
}

func (s *Shell) scan(done <-chan struct{}) {
	defer close(s.lines)

	for s.in.Scan() {
		select {
		case s.lines <- s.in.Text():
		case <-done:
			return
		}
	}

	s.scanMux.Lock()
	s.scanErr = s.in.Err()
	s.scanMux.Unlock()
}

func (s *Shell) err() error {
	s.scanMux.Lock()
	defer s.scanMux.Unlock()
	return s.scanErr
}

func (s *Shell) readLine() (string, bool) {
	select {
	case <-s.done:
		return "", false
	case line, ok := <-s.lines:
		return strings.TrimSpace(line), ok
	}
}

// readLineOrRecovery waits for input on the unreachable screen. It returns early with recovered set as soon as
// the background monitor no longer reports the backend as unreachable.
func (s *Shell) readLineOrRecovery() (line string, recovered, ok bool) {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return "", false, false
		case line, ok := <-s.lines:
			return strings.TrimSpace(line), false, ok
		case <-ticker.C:
			if s.monitor.Info().Status != domain.BackendUnreachable {
				return "", true, true
			}
		}
	}
}

func (s *Shell) ask(prompt string) (string, bool) {
	s.r.printf("%s", prompt)
	return s.readLine()
}

// Confirm asks a yes/no question on the shell input. Anything but an explicit yes is a no.
func (s *Shell) Confirm(prompt string) bool {
	answer, ok := s.ask(prompt + " [y/N] ")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// awaitBackend blocks until the backend is reachable. It returns false if the user quit or the input ended.
func (s *Shell) awaitBackend(ctx context.Context) bool {
	shownChecking := false
	for {
		info := s.monitor.Info()
		switch info.Status {
		case domain.BackendReachable:
			return true
		case domain.BackendUnreachable:
			shownChecking = false
			s.r.Unreachable(info)
			s.r.printf("> ")
			line, recovered, ok := s.readLineOrRecovery()
			if !ok {
				return false
			}
			if recovered {
				s.r.println("")
				continue
			}
			switch line {
			case "retry":
				s.r.Checking()
				s.monitor.Retry(ctx)
			case "quit", "exit":
				return false
			}
		default:
			if !shownChecking {
				s.r.Checking()
				shownChecking = true
			}
			select {
			case <-ctx.Done():
				return false
			case <-time.After(s.PollInterval):
			}
		}
	}
}

// syncPage switches between the login page and the dashboard whenever the session changes.
func (s *Shell) syncPage(ctx context.Context) {
	loggedIn := s.sessions.Current() != nil

	switch {
	case !loggedIn && s.page != pageAuth:
		s.enterAuth()
	case loggedIn && (s.page == pageNone || s.page == pageAuth):
		s.enterDashboard(ctx)
	}
}

func (s *Shell) enterAuth() {
	s.page = pageAuth
	s.auth = s.pages.Auth()
	s.voting = nil
	s.admin = nil

	s.r.Banner(s.monitor.Info())
	s.r.Auth(s.auth.State())
	slog.Debug("entered login page")
}

func (s *Shell) enterDashboard(ctx context.Context) {
	s.page = pageDashboard
	s.auth = nil
	s.admin = nil
	s.voting = s.pages.Voting()
	s.voting.Mount(ctx)

	s.r.Banner(s.monitor.Info())
	s.r.Dashboard(s.sessions.Current(), s.voting.State())
	slog.Debug("entered dashboard")
}

func (s *Shell) enterAdmin(ctx context.Context) {
	flow := s.pages.Admin(s)
	if flow.State().AccessDenied {
		s.r.Admin(flow.State())
		return
	}

	s.page = pageAdmin
	s.voting = nil
	s.admin = flow
	s.admin.Mount(ctx)

	s.r.Banner(s.monitor.Info())
	s.r.Admin(s.admin.State())
	slog.Debug("entered admin panel")
}

func (s *Shell) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return errQuit
	case "help":
		s.help()
		return nil
	case "status":
		s.r.Banner(s.monitor.Info())
		return nil
	}

	switch s.page {
	case pageAuth:
		return s.executeAuth(ctx, cmd, args)
	case pageDashboard:
		return s.executeDashboard(ctx, cmd, args)
	case pageAdmin:
		return s.executeAdmin(ctx, cmd, args)
	}
	return nil
}

func (s *Shell) executeAuth(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "toggle":
		s.auth.ToggleMode()
		s.r.Auth(s.auth.State())
	case "login", "register":
		want := auth.ModeLogin
		if cmd == "register" {
			want = auth.ModeRegister
		}
		if s.auth.State().Mode != want {
			s.auth.ToggleMode()
		}

		username, password, ok := s.credentials(args)
		if !ok {
			return nil
		}
		s.auth.SetUsername(username)
		s.auth.SetPassword(password)
		s.auth.Submit(ctx)

		st := s.auth.State()
		s.r.Messages(st.Error, st.Success)
	default:
		return unknownCommand(cmd)
	}
	return nil
}

func (s *Shell) credentials(args []string) (username, password string, ok bool) {
	if len(args) > 0 {
		username = args[0]
	} else if username, ok = s.ask("Username: "); !ok {
		return "", "", false
	}

	if len(args) > 1 {
		password = args[1]
	} else if password, ok = s.ask("Password: "); !ok {
		return "", "", false
	}

	return username, password, true
}

func (s *Shell) executeDashboard(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "refresh", "list":
		s.voting.Refresh(ctx)
	case "vote":
		id, err := candidateId(args)
		if err != nil {
			return err
		}
		s.voting.CastVote(ctx, id)
	case "results":
		s.voting.ShowResults(ctx)
	case "hide":
		s.voting.HideResults()
	case "dismiss":
		s.voting.DismissMessages()
	case "whoami":
		s.r.Session(s.sessions.Current())
		return nil
	case "admin":
		s.enterAdmin(ctx)
		return nil
	case "logout":
		return s.logout(ctx)
	default:
		return unknownCommand(cmd)
	}

	s.r.Dashboard(s.sessions.Current(), s.voting.State())
	return nil
}

func (s *Shell) executeAdmin(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "refresh", "list":
		s.admin.Refresh(ctx)
	case "add":
		name := strings.Join(args, " ")
		if name == "" {
			var ok bool
			if name, ok = s.ask("Candidate name: "); !ok {
				return nil
			}
		}
		s.admin.OpenAddForm()
		s.admin.SetNewName(name)
		s.admin.SubmitAdd(ctx)
	case "rename", "edit":
		id, err := candidateId(args)
		if err != nil {
			return err
		}
		name := strings.Join(args[1:], " ")
		if name == "" {
			var ok bool
			if name, ok = s.ask("New name: "); !ok {
				return nil
			}
		}
		s.admin.StartEdit(id)
		s.admin.SetEditName(name)
		s.admin.SubmitEdit(ctx)
	case "delete":
		id, err := candidateId(args)
		if err != nil {
			return err
		}
		s.admin.Delete(ctx, id)
	case "dismiss":
		s.admin.DismissMessages()
	case "whoami":
		s.r.Session(s.sessions.Current())
		return nil
	case "back", "dashboard":
		s.enterDashboard(ctx)
		return nil
	case "logout":
		return s.logout(ctx)
	default:
		return unknownCommand(cmd)
	}

	s.r.Admin(s.admin.State())
	return nil
}

func (s *Shell) logout(ctx context.Context) error {
	if err := s.sessions.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	s.r.println("Logged out.")
	return nil
}

func (s *Shell) help() {
	s.r.println("Commands available everywhere: help, status, quit")
	switch s.page {
	case pageAuth:
		s.r.println("  login [username] [password]     sign in")
		s.r.println("  register [username] [password]  create an account")
		s.r.println("  toggle                          switch between sign in and sign up")
	case pageDashboard:
		s.r.println("  refresh        reload the candidate list")
		s.r.println("  vote <id>      vote for a candidate")
		s.r.println("  results|hide   show or hide the vote shares")
		s.r.println("  dismiss        clear messages")
		s.r.println("  admin          open the admin panel")
		s.r.println("  whoami|logout")
	case pageAdmin:
		s.r.println("  refresh               reload the candidate list")
		s.r.println("  add [name]            add a candidate")
		s.r.println("  rename <id> [name]    rename a candidate")
		s.r.println("  delete <id>           delete a candidate")
		s.r.println("  dismiss               clear messages")
		s.r.println("  back                  return to the dashboard")
		s.r.println("  whoami|logout")
	}
}

func unknownCommand(cmd string) error {
	return fmt.Errorf("unknown command %q, type 'help' for a list of commands", cmd)
}

func candidateId(args []string) (domain.CandidateId, error) {
	if len(args) == 0 {
		return 0, errors.New("missing candidate id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid candidate id %q", args[0])
	}
	return domain.CandidateId(id), nil
}
