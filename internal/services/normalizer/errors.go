package normalizer

// ErrorCode identifies why a record could not be normalized.
type ErrorCode string

const (
	ErrEmptyName ErrorCode = "EMPTY_NAME"
)

// RecordError is a per-record normalization failure. It is counted against
// the owning job's error tally and never aborts the import.
type RecordError struct {
	Code    ErrorCode
	Message string
}

func (e *RecordError) Error() string {
	return string(e.Code) + ": " + e.Message
}
