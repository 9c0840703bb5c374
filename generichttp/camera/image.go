package camera

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
	"github.jpl.nasa.gov/bdube/acqinvoker/invoker"
)

// ErrUnsupportedFormat is returned for pixel formats the encoders do not handle
type ErrUnsupportedFormat struct {
	Format camera.PixelFormat
}

// Error satisfies the error interface
func (e ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("cannot encode pixel format %v", e.Format)
}

func checkSize(f invoker.FrameInfo) error {
	need := f.Width * f.Height * f.PixelFormat.BytesPerPixel()
	if f.Width <= 0 || f.Height <= 0 || len(f.Data) < need {
		return fmt.Errorf("frame %d holds %d bytes, %dx%d %v needs %d",
			f.FrameID, len(f.Data), f.Width, f.Height, f.PixelFormat, need)
	}
	return nil
}

// FrameImage wraps the payload of f in an image.Image.  8-bit formats share
// f.Data; Mono16 is converted from the camera's little-endian layout.
// Bayer data is shown raw, without demosaicing.
func FrameImage(f invoker.FrameInfo) (image.Image, error) {
	if err := checkSize(f); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, f.Width, f.Height)
	switch f.PixelFormat {
	case camera.Mono8, camera.BayerRG8:
		return &image.Gray{Pix: f.Data, Stride: f.Width, Rect: rect}, nil
	case camera.Mono16:
		im := image.NewGray16(rect)
		n := f.Width * f.Height
		for idx := 0; idx < n; idx++ {
			v := binary.LittleEndian.Uint16(f.Data[2*idx:])
			im.Pix[2*idx] = byte(v >> 8)
			im.Pix[2*idx+1] = byte(v)
		}
		return im, nil
	case camera.RGB8:
		im := image.NewRGBA(rect)
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				o := 3 * (y*f.Width + x)
				im.SetRGBA(x, y, color.RGBA{f.Data[o], f.Data[o+1], f.Data[o+2], 0xff})
			}
		}
		return im, nil
	default:
		return nil, ErrUnsupportedFormat{f.PixelFormat}
	}
}

// WriteJPEG encodes f as a JPEG
func WriteJPEG(w io.Writer, f invoker.FrameInfo) error {
	im, err := FrameImage(f)
	if err != nil {
		return err
	}
	return jpeg.Encode(w, im, nil)
}

// WritePNG encodes f as a PNG
func WritePNG(w io.Writer, f invoker.FrameInfo) error {
	im, err := FrameImage(f)
	if err != nil {
		return err
	}
	return png.Encode(w, im)
}
