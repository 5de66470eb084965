package app

import "github.com/h44z/vote-portal/internal/domain"

// region topics

// TopicSessionLogin is published after a successful login. Argument: domain.Session.
const TopicSessionLogin = "session:login"

// TopicSessionLogout is published after the session was cleared. Argument: domain.Session (the old session).
const TopicSessionLogout = "session:logout"

// TopicAuthFailed is published for rejected logins and registrations. Argument: AuthEvent.
const TopicAuthFailed = "auth:failed"

// TopicUserRegistered is published after a successful registration. Argument: AuthEvent.
const TopicUserRegistered = "auth:registered"

// TopicBackendStatus is published whenever the connectivity state changes. Argument: domain.BackendStatus.
const TopicBackendStatus = "backend:status"

// TopicVoteCast is published for every vote attempt that got an answer. Argument: VoteEvent.
const TopicVoteCast = "vote:cast"

// TopicCandidateChanged is published after an administrative change. Argument: CandidateEvent.
const TopicCandidateChanged = "candidate:changed"

// endregion topics

// region events

type AuthEvent struct {
	Username string
	Action   string // "login" or "register"
	Error    string
}

type VoteEvent struct {
	Username    string
	UserId      domain.UserId
	CandidateId domain.CandidateId
	Result      domain.VoteResult
}

type CandidateAction string

const (
	CandidateCreated CandidateAction = "created"
	CandidateUpdated CandidateAction = "updated"
	CandidateDeleted CandidateAction = "deleted"
)

type CandidateEvent struct {
	Actor     string
	Action    CandidateAction
	Candidate domain.Candidate
}

// endregion events
