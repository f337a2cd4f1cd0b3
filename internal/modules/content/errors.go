package content

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnsupportedMedia  Kind = "unsupported_media"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindGeneration        Kind = "generation"
	KindSpeechSynthesis   Kind = "speech_synthesis"
	KindRender            Kind = "render"
	KindTimeout           Kind = "timeout"
	KindAnalysisFailed    Kind = "analysis_failed"
	KindStorage           Kind = "storage"
)

var kindText = map[Kind]string{
	KindUnsupportedMedia:  "unsupported media type",
	KindUnsupportedFormat: "unsupported document format",
	KindGeneration:        "text generation failed",
	KindSpeechSynthesis:   "speech synthesis failed",
	KindRender:            "render failed",
	KindTimeout:           "video analysis timed out",
	KindAnalysisFailed:    "video analysis failed",
	KindStorage:           "media storage failed",
}

// Error is the pipeline error taxonomy. Compare with errors.Is against the
// Err* sentinels below.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

var (
	ErrUnsupportedMedia  = &Error{Kind: KindUnsupportedMedia}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrGeneration        = &Error{Kind: KindGeneration}
	ErrSpeechSynthesis   = &Error{Kind: KindSpeechSynthesis}
	ErrRender            = &Error{Kind: KindRender}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrAnalysisFailed    = &Error{Kind: KindAnalysisFailed}
	ErrStorage           = &Error{Kind: KindStorage}
)

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func errorf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := kindText[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	if t.Op != "" || t.Err != nil {
		return e == t
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) && ce != nil {
		return ce.Kind
	}
	return ""
}
