package failure

type Severity int

// pipeline control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

// ClassifiedError is returned by every pipeline stage.
// The orchestrator is the only component that turns a Severity into
// a continue / retry / abort decision.
type ClassifiedError interface {
	error
	Severity() Severity
}

// IsFatal reports whether err carries fatal severity.
// A nil error is never fatal.
func IsFatal(err ClassifiedError) bool {
	return err != nil && err.Severity() == SeverityFatal
}
