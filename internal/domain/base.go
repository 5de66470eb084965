package domain

// PrivateString hides sensitive values like passwords from logs and serialized output.
type PrivateString string

func (PrivateString) MarshalJSON() ([]byte, error) {
	return []byte(`""`), nil
}

func (PrivateString) String() string {
	return ""
}

// Plain returns the underlying value. Use it only where the value must leave the process, e.g. a login request.
func (p PrivateString) Plain() string {
	return string(p)
}
