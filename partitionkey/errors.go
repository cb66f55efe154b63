package partitionkey

// ValidationError indicates a malformed partition-key definition or value.
// It is always raised before any hashing or request work is attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid partition key: " + e.Reason
}
