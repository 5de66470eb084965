package domain

// The backend reports some business outcomes as plain text inside a successful response.
// These strings are part of the wire contract and are only interpreted by the gateway adapter.
const (
	SentinelInvalidCredentials = "Invalid credentials"
	SentinelUsernameTaken      = "Username already exists!"
	SentinelAlreadyVoted       = "You have already voted!"
)

// LoginOutcome is the typed result of a login request.
type LoginOutcome struct {
	InvalidCredentials bool
	Role               Role // only set if the credentials were accepted
}

// RegisterOutcome is the typed result of a registration request.
type RegisterOutcome struct {
	UsernameTaken bool
	Message       string // backend message for accepted registrations
}

type VoteResult string

const (
	VoteAccepted    VoteResult = "accepted"
	VoteAlreadyCast VoteResult = "already-voted"
)

// VoteOutcome is the typed result of a vote request.
type VoteOutcome struct {
	Result  VoteResult
	Message string // backend message as delivered
}

func (o VoteOutcome) IsAccepted() bool {
	return o.Result == VoteAccepted
}
