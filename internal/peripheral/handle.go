package peripheral

import (
	"errors"
	"io"
)

var errAlreadyOpen = errors.New("handle already open")

// Handle is an owned, optional reference to one hardware line. It is either
// present, meaning opened and fully configured, or absent. The zero value is
// an absent handle with no name.
//
// Handle is not safe for concurrent use; it has exactly one owner.
type Handle[T io.Closer] struct {
	name    string
	kind    Kind
	mode    string
	res     T
	present bool
}

// NewHandle returns an absent handle for the named line.
func NewHandle[T io.Closer](name string, kind Kind) Handle[T] {
	return Handle[T]{name: name, kind: kind}
}

// Open acquires the line with open and then applies configure, which returns a
// description of the mode it set. If configure fails the line is closed again
// and the handle stays absent, so a half-configured line is never exposed.
func (h *Handle[T]) Open(open func() (T, error), configure func(T) (string, error)) error {
	if h.present {
		return NewError(ErrCodeOpenFailed, "open", h.name, h.kind, errAlreadyOpen)
	}

	res, err := open()
	if err != nil {
		return NewError(ErrCodeOpenFailed, "open", h.name, h.kind, err)
	}

	mode := ""
	if configure != nil {
		mode, err = configure(res)
		if err != nil {
			// The line is unusable either way; the close error adds nothing.
			_ = res.Close()
			return NewError(ErrCodeConfigureFailed, "configure", h.name, h.kind, err)
		}
	}

	h.res = res
	h.mode = mode
	h.present = true
	return nil
}

// Get returns the resource and whether the handle is present.
func (h *Handle[T]) Get() (T, bool) {
	if !h.present {
		var zero T
		return zero, false
	}
	return h.res, true
}

// Present reports whether the handle holds an opened line.
func (h *Handle[T]) Present() bool {
	return h.present
}

// Close releases the line. Closing an absent handle is a no-op. The handle is
// absent afterwards even when the underlying close fails.
func (h *Handle[T]) Close() error {
	if !h.present {
		return nil
	}

	res := h.res
	var zero T
	h.res = zero
	h.mode = ""
	h.present = false

	if err := res.Close(); err != nil {
		return NewError(ErrCodeCloseFailed, "close", h.name, h.kind, err)
	}
	return nil
}

// Name returns the logical line name.
func (h *Handle[T]) Name() string { return h.name }

// Kind returns the handle kind.
func (h *Handle[T]) Kind() Kind { return h.kind }

// Mode returns the last configured mode, or "" when absent.
func (h *Handle[T]) Mode() string { return h.mode }
