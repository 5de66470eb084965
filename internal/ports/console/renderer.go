package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/h44z/vote-portal/internal/app/admin"
	"github.com/h44z/vote-portal/internal/app/auth"
	"github.com/h44z/vote-portal/internal/app/monitor"
	"github.com/h44z/vote-portal/internal/app/voting"
	"github.com/h44z/vote-portal/internal/domain"
)

const timeFormat = "15:04:05"

// Renderer writes plain text views of the application state.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *Renderer) println(args ...any) {
	_, _ = fmt.Fprintln(r.out, args...)
}

func (r *Renderer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
}

// region connectivity

func (r *Renderer) Checking() {
	r.println("Checking backend connection...")
}

func (r *Renderer) Unreachable(info monitor.Info) {
	r.println("Backend Unavailable")
	r.println("Cannot connect to the voting server. Ensure the backend is running and reachable.")
	if !info.LastChecked.IsZero() {
		r.printf("Last checked at %s (%d failed attempts)\n", info.LastChecked.Format(timeFormat), info.Failures)
	}
	r.println("Type 'retry' to check again or 'quit' to exit.")
}

// Banner prints the one-line connectivity indicator shown above every page.
func (r *Renderer) Banner(info monitor.Info) {
	var text string
	switch info.Status {
	case domain.BackendReachable:
		text = "Connected to voting server"
	case domain.BackendUnreachable:
		text = "Connection issues - some features may not work"
	default:
		text = "Checking connection..."
	}

	if info.LastChecked.IsZero() {
		r.printf("[%s]\n", text)
		return
	}
	r.printf("[%s | last checked %s]\n", text, info.LastChecked.Format(timeFormat))
}

// endregion connectivity

// Messages prints the error and success message of a flow, if any.
func (r *Renderer) Messages(errMsg, success string) {
	if errMsg != "" {
		r.printf("ERROR: %s\n", errMsg)
	}
	if success != "" {
		r.printf("OK: %s\n", success)
	}
}

func (r *Renderer) Auth(s auth.State) {
	if s.Mode == auth.ModeRegister {
		r.println("Create Account")
		r.println("Already have an account? Type 'toggle' to sign in.")
	} else {
		r.println("Sign In")
		r.println("Don't have an account? Type 'toggle' to sign up.")
	}
	if s.Submitting {
		r.println("Please wait...")
	}
	r.Messages(s.Error, s.Success)
}

// Session prints the identity of the logged-in user.
func (r *Renderer) Session(s *domain.Session) {
	if s == nil {
		r.println("Not logged in.")
		return
	}

	w := r.table()
	_, _ = fmt.Fprintf(w, "Username:\t%s\n", s.Username)
	_, _ = fmt.Fprintf(w, "Role:\t%s\n", s.Role)
	_, _ = fmt.Fprintf(w, "User id:\t%d\n", s.Id)
	_, _ = fmt.Fprintf(w, "Logged in:\t%s\n", s.LoginTime.Local().Format(time.DateTime))
	_ = w.Flush()
}

// Statistics prints the summary line of a candidate snapshot.
func (r *Renderer) Statistics(candidates domain.Snapshot) {
	leading := "N/A"
	if c, ok := candidates.Leading(); ok {
		leading = c.Name
	}
	r.printf("Total Candidates: %d | Total Votes: %d | Leading Candidate: %s\n",
		len(candidates), candidates.TotalVotes(), leading)
}

// Results prints the candidate table including the vote share of each candidate.
func (r *Renderer) Results(candidates domain.Snapshot) {
	r.candidateTable(candidates, true, nil)
}

func (r *Renderer) candidateTable(candidates domain.Snapshot, shares bool, mark func(c domain.Candidate) string) {
	w := r.table()
	if shares {
		_, _ = fmt.Fprintln(w, "ID\tNAME\tVOTES\tSHARE\t")
	} else {
		_, _ = fmt.Fprintln(w, "ID\tNAME\tVOTES\t")
	}

	for _, c := range candidates {
		var note string
		if mark != nil {
			note = mark(c)
		}
		if shares {
			if candidates.IsLeading(c.Id) {
				note = strings.TrimSpace("leading " + note)
			}
			_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%.1f%%\t%s\n", c.Id, c.Name, c.Votes, candidates.Percentage(c.Votes), note)
		} else {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", c.Id, c.Name, c.Votes, note)
		}
	}
	_ = w.Flush()
}

func (r *Renderer) Dashboard(s *domain.Session, st voting.State) {
	r.println("Voting Dashboard")
	if s != nil {
		r.printf("Welcome, %s!\n", s.Username)
	}
	r.Statistics(st.Candidates)
	r.Messages(st.Error, st.Success)

	switch {
	case st.Loading && len(st.Candidates) == 0:
		r.println("Loading candidates...")
		return
	case len(st.Candidates) == 0:
		r.println("No Candidates Yet")
		r.println("No candidates have been added to the system yet.")
		return
	}

	r.candidateTable(st.Candidates, st.ShowResults, func(c domain.Candidate) string {
		if st.SelectedCandidate != nil && *st.SelectedCandidate == c.Id {
			return "(your vote)"
		}
		return ""
	})

	switch {
	case st.Voting:
		r.println("Voting...")
	case st.HasVoted:
		r.println("Voted. Voting is closed for this session.")
	case !st.ShowResults:
		r.println("Type 'vote <id>' to vote for a candidate.")
	}
}

func (r *Renderer) Admin(st admin.State) {
	r.println("Admin Panel")
	if st.AccessDenied {
		r.println("Access Denied")
		r.println(admin.MsgAccessDenied)
		return
	}

	r.Messages(st.Error, st.Success)
	if st.AddFormOpen {
		r.printf("New candidate: %q\n", st.NewName)
	}
	if st.Saving {
		r.println("Saving...")
	}

	switch {
	case st.Loading && len(st.Candidates) == 0:
		r.println("Loading candidates...")
		return
	case len(st.Candidates) == 0:
		r.println("No Candidates")
		r.println("Add your first candidate to get started.")
		return
	}

	r.printf("Manage Candidates (%d)\n", len(st.Candidates))
	r.candidateTable(st.Candidates, false, func(c domain.Candidate) string {
		switch {
		case st.IsDeleting(c.Id):
			return "(deleting)"
		case st.Editing != nil && st.Editing.Id == c.Id:
			return fmt.Sprintf("(renaming to %q)", st.Editing.Name)
		}
		return ""
	})
}

// Audit prints the activity journal, newest entry first.
func (r *Renderer) Audit(entries []domain.AuditEntry) {
	if len(entries) == 0 {
		r.println("No activity recorded.")
		return
	}

	w := r.table()
	_, _ = fmt.Fprintln(w, "TIME\tSEVERITY\tORIGIN\tUSER\tMESSAGE\t")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Severity, e.Origin, e.Username, e.Message)
	}
	_ = w.Flush()
}
