// Package errors defines the pipeline error taxonomy.
package errors

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindConfig marks invalid chunking or role parameters, rejected
	// before any I/O.
	KindConfig Kind = "CONFIG_ERROR"

	// KindExtract marks an unreadable or corrupt document; indexing is
	// aborted and the knowledge base is left untouched.
	KindExtract Kind = "EXTRACT_ERROR"

	// KindService marks an unreachable embedding or vector-store
	// service; retried a bounded number of times before surfacing.
	KindService Kind = "SERVICE_ERROR"

	// KindInference marks a model failure during a query; fatal to that
	// query's agent step.
	KindInference Kind = "INFERENCE_ERROR"

	// KindTool marks an external tool failure; absorbed by the agent,
	// never fatal to the request.
	KindTool Kind = "TOOL_ERROR"
)

// PipelineError is a classified application error.
type PipelineError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// New creates a classified error.
func New(kind Kind, message string) *PipelineError {
	return &PipelineError{Kind: kind, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Cause: cause}
}

// KindOf reports the kind of err, or "" when err is not a
// PipelineError anywhere in its chain.
func KindOf(err error) Kind {
	for err != nil {
		if pe, ok := err.(*PipelineError); ok {
			return pe.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
