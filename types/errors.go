package types

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the request boundary can map it to a response
type Kind int

const (
	KindInternal Kind = iota
	KindInput
	KindDecode
	KindEngineNotReady
	KindEngineUnavailable
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindDecode:
		return "decode"
	case KindEngineNotReady:
		return "engine not ready"
	case KindEngineUnavailable:
		return "engine unavailable"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Sentinel errors, one per kind. errors.Is(err, ErrDecode) holds for any *Error of that kind.
var (
	ErrInput             = errors.New("invalid input")
	ErrDecode            = errors.New("image could not be decoded")
	ErrEngineNotReady    = errors.New("embedding engine is not ready")
	ErrEngineUnavailable = errors.New("embedding engine failed to initialize")
	ErrUpstream          = errors.New("catalog matcher failed")
	ErrInternal          = errors.New("internal error")
)

// Error is a classified failure raised somewhere in the pipeline
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.sentinel())
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindInput:
		return ErrInput
	case KindDecode:
		return ErrDecode
	case KindEngineNotReady:
		return ErrEngineNotReady
	case KindEngineUnavailable:
		return ErrEngineUnavailable
	case KindUpstream:
		return ErrUpstream
	default:
		return ErrInternal
	}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func InputError(op string, err error) error {
	return &Error{Kind: KindInput, Op: op, Err: err}
}

func DecodeError(op string, err error) error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}

func NotReadyError(op string) error {
	return &Error{Kind: KindEngineNotReady, Op: op}
}

func UnavailableError(op string, err error) error {
	return &Error{Kind: KindEngineUnavailable, Op: op, Err: err}
}

func UpstreamError(op string, err error) error {
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

func InternalError(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}
