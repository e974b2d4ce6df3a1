package clipboard

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"snip/src/process"
	"snip/src/process/processtest"
)

func testImage() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 3, 2))
}

func TestWriteImageUsesWlCopy(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "wayland-1")
	runner := processtest.New().On("wl-copy", nil, nil)
	s := &Sink{Runner: runner, Native: func([]byte) error {
		t.Fatal("native clipboard should not be used when wl-copy succeeds")
		return nil
	}}

	if err := s.WriteImage(context.Background(), testImage()); err != nil {
		t.Fatalf("WriteImage failed: %v", err)
	}
	calls := runner.CallsTo("wl-copy")
	if len(calls) != 1 || calls[0].String() != "wl-copy --type image/png" {
		t.Fatalf("Unexpected calls %v", calls)
	}
	img, err := png.Decode(bytes.NewReader(calls[0].Stdin))
	if err != nil {
		t.Fatalf("wl-copy did not receive a PNG: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("Unexpected image size %v", img.Bounds())
	}
}

func TestWriteImageFallsBackToNative(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "wayland-1")
	runner := processtest.New().On("wl-copy", nil, &process.ExitError{Name: "wl-copy", Code: 1})
	var got []byte
	s := &Sink{Runner: runner, Native: func(data []byte) error {
		got = data
		return nil
	}}

	if err := s.WriteImage(context.Background(), testImage()); err != nil {
		t.Fatalf("WriteImage failed: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("Expected native fallback to receive PNG data")
	}
}

func TestWriteImageSkipsWlCopyOutsideWayland(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "")
	runner := processtest.New()
	called := false
	s := &Sink{Runner: runner, Native: func([]byte) error { called = true; return nil }}

	if err := s.WriteImage(context.Background(), testImage()); err != nil {
		t.Fatalf("WriteImage failed: %v", err)
	}
	if !called || len(runner.Calls) != 0 {
		t.Fatalf("Expected native path only, native=%v calls=%v", called, runner.Calls)
	}
}

func TestWriteImageReportsNativeFailure(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "")
	s := &Sink{Native: func([]byte) error { return ErrUnavailable }}
	if err := s.WriteImage(context.Background(), testImage()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
}
