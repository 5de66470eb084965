package domain

// BackendStatus is the connectivity state of the voting backend as seen by the monitor.
type BackendStatus string

const (
	BackendChecking    BackendStatus = "checking"
	BackendUnreachable BackendStatus = "unreachable"
	BackendReachable   BackendStatus = "reachable"
)

func (s BackendStatus) IsReachable() bool {
	return s == BackendReachable
}
