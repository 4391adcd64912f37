package peripheral

import (
	"errors"
	"testing"
)

type fakeCloser struct {
	closed   int
	closeErr error
}

func (f *fakeCloser) Close() error {
	f.closed++
	return f.closeErr
}

func TestHandle_OpenConfigure(t *testing.T) {
	res := &fakeCloser{}
	h := NewHandle[*fakeCloser]("GPIO6", KindGpioOut)

	if h.Present() {
		t.Fatal("new handle should be absent")
	}

	err := h.Open(
		func() (*fakeCloser, error) { return res, nil },
		func(*fakeCloser) (string, error) { return "out-low", nil },
	)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got, ok := h.Get()
	if !ok || got != res {
		t.Fatalf("Get() = %v, %v; want resource, true", got, ok)
	}
	if h.Mode() != "out-low" {
		t.Errorf("Mode() = %q, want %q", h.Mode(), "out-low")
	}
}

func TestHandle_OpenFailure(t *testing.T) {
	h := NewHandle[*fakeCloser]("UART6", KindUart)
	cause := errors.New("no such device")

	err := h.Open(func() (*fakeCloser, error) { return nil, cause }, nil)
	if err == nil {
		t.Fatal("Open() should fail")
	}
	if CodeOf(err) != ErrCodeOpenFailed {
		t.Errorf("CodeOf() = %q, want %q", CodeOf(err), ErrCodeOpenFailed)
	}
	if !errors.Is(err, cause) {
		t.Error("error should wrap the cause")
	}
	if h.Present() {
		t.Error("handle should stay absent after open failure")
	}
}

func TestHandle_ConfigureFailureClosesLine(t *testing.T) {
	res := &fakeCloser{}
	h := NewHandle[*fakeCloser]("UART6", KindUart)

	err := h.Open(
		func() (*fakeCloser, error) { return res, nil },
		func(*fakeCloser) (string, error) { return "", errors.New("bad baud") },
	)
	if CodeOf(err) != ErrCodeConfigureFailed {
		t.Fatalf("CodeOf() = %q, want %q", CodeOf(err), ErrCodeConfigureFailed)
	}
	if res.closed != 1 {
		t.Errorf("half-configured line closed %d times, want 1", res.closed)
	}
	if _, ok := h.Get(); ok {
		t.Error("half-configured line must not be exposed")
	}
}

func TestHandle_CloseIsIdempotent(t *testing.T) {
	res := &fakeCloser{}
	h := NewHandle[*fakeCloser]("GPIO19", KindGpioOut)

	// Never opened.
	if err := h.Close(); err != nil {
		t.Fatalf("Close() on absent handle = %v", err)
	}

	if err := h.Open(func() (*fakeCloser, error) { return res, nil }, nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := h.Close(); err != nil {
			t.Fatalf("Close() #%d = %v", i+1, err)
		}
	}
	if res.closed != 1 {
		t.Errorf("underlying Close called %d times, want 1", res.closed)
	}
}

func TestHandle_CloseFailureStillReleases(t *testing.T) {
	res := &fakeCloser{closeErr: errors.New("ebusy")}
	h := NewHandle[*fakeCloser]("GPIO19", KindGpioOut)
	if err := h.Open(func() (*fakeCloser, error) { return res, nil }, nil); err != nil {
		t.Fatal(err)
	}

	err := h.Close()
	if CodeOf(err) != ErrCodeCloseFailed {
		t.Fatalf("CodeOf() = %q, want %q", CodeOf(err), ErrCodeCloseFailed)
	}
	if h.Present() {
		t.Error("handle should be absent after a failed close")
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func TestHandle_DoubleOpenRejected(t *testing.T) {
	h := NewHandle[*fakeCloser]("GPIO6", KindGpioOut)
	open := func() (*fakeCloser, error) { return &fakeCloser{}, nil }
	if err := h.Open(open, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.Open(open, nil); CodeOf(err) != ErrCodeOpenFailed {
		t.Errorf("second Open() code = %q, want %q", CodeOf(err), ErrCodeOpenFailed)
	}
}
