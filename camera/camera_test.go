package camera_test

import (
	"errors"
	"fmt"
	"testing"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
)

func ExamplePixelFormat_BytesPerPixel() {
	fmt.Println(camera.Mono8.BytesPerPixel(), camera.Mono16.BytesPerPixel(), camera.RGB8.BytesPerPixel())
	// Output: 1 2 3
}

func TestParsePixelFormatRoundTrips(t *testing.T) {
	for _, pf := range []camera.PixelFormat{camera.Mono8, camera.Mono16, camera.BayerRG8, camera.RGB8} {
		got, err := camera.ParsePixelFormat(pf.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != pf {
			t.Errorf("expected %v got %v", pf, got)
		}
	}
	if _, err := camera.ParsePixelFormat("YUV422_8"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestBufferImageDataRequiresSuccess(t *testing.T) {
	b := camera.NewBuffer(16)
	if _, err := b.ImageData(); !errors.Is(err, camera.ErrBufferNotFilled) {
		t.Errorf("expected ErrBufferNotFilled, got %v", err)
	}
	b.Complete(camera.BufferMissingPackets, 8)
	if _, err := b.ImageData(); err == nil {
		t.Error("expected an error for a partial frame")
	}
	b.Complete(camera.BufferSuccess, 12)
	data, err := b.ImageData()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 12 {
		t.Errorf("expected 12 bytes of image data, got %d", len(data))
	}
	if &data[0] != &b.Data()[0] {
		t.Error("image data does not alias the buffer memory")
	}
}

func TestBufferCompleteClampsToCapacity(t *testing.T) {
	b := camera.NewBuffer(4)
	b.Complete(camera.BufferSuccess, 10)
	data, _ := b.ImageData()
	if len(data) != 4 {
		t.Errorf("expected received length clamped to 4, got %d", len(data))
	}
	b.Reset()
	if b.Status() != camera.BufferCleared {
		t.Errorf("expected cleared status after reset, got %v", b.Status())
	}
}
