package office2pdf

import (
	"errors"
	"fmt"
)

// Kind classifies why a conversion failed. Every error returned by
// Converter.Convert carries exactly one Kind.
type Kind string

// Failure kinds.
const (
	// KindUnsupportedFormat is a client input error: unknown extension,
	// empty document, or content contradicting the declared format.
	KindUnsupportedFormat Kind = "UnsupportedFormat"

	// KindResourceError is a host fault: scratch space, missing engine binary.
	KindResourceError Kind = "ResourceError"

	// KindOverloaded means no engine slot freed up before the deadline.
	// Callers may retry after a delay.
	KindOverloaded Kind = "Overloaded"

	// KindConversionTimeout means the engine stalled on both attempts.
	KindConversionTimeout Kind = "ConversionTimeout"

	// KindRenderFailed means the engine rejected the document.
	KindRenderFailed Kind = "RenderFailed"
)

// Sentinel errors, one per Kind. errors.Is matches them against any
// *ConversionError of the same kind.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrResource          = errors.New("resource error")
	ErrOverloaded        = errors.New("overloaded")
	ErrConversionTimeout = errors.New("conversion timed out")
	ErrRenderFailed      = errors.New("render failed")
)

var kindSentinels = map[Kind]error{
	KindUnsupportedFormat: ErrUnsupportedFormat,
	KindResourceError:     ErrResource,
	KindOverloaded:        ErrOverloaded,
	KindConversionTimeout: ErrConversionTimeout,
	KindRenderFailed:      ErrRenderFailed,
}

// Retryable reports whether the same request may succeed if sent again later.
func (k Kind) Retryable() bool {
	return k == KindOverloaded || k == KindConversionTimeout
}

// ConversionError is the failure variant of a conversion.
type ConversionError struct {
	Kind   Kind
	Detail string
	JobID  string // empty when the job was rejected before an ID was assigned
	Err    error  // underlying cause, may be nil
}

func (e *ConversionError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's Kind.
func (e *ConversionError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func newError(kind Kind, detail string, cause error) *ConversionError {
	return &ConversionError{Kind: kind, Detail: detail, Err: cause}
}

// KindOf classifies err. It returns "" for nil and KindResourceError for
// errors that carry no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindResourceError
}
