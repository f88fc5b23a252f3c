package domain

// DomainError is a sentinel raised while normalizing backend records. Its
// message doubles as the diagnostic reason, so keep it short and stable.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Record errors
var (
	ErrInvalidTimestamp = NewDomainError("invalid timestamp")
	ErrMissingTaskID    = NewDomainError("task id is required")
	ErrMalformedRecord  = NewDomainError("malformed record")
)
