package camera

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/astrogo/fitsio"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
	"github.jpl.nasa.gov/bdube/acqinvoker/invoker"
)

// planes returns f as unsigned 16-bit samples, one plane per color channel
func planes(f invoker.FrameInfo) ([]uint16, int, error) {
	if err := checkSize(f); err != nil {
		return nil, 0, err
	}
	n := f.Width * f.Height
	switch f.PixelFormat {
	case camera.Mono8, camera.BayerRG8:
		out := make([]uint16, n)
		for idx := 0; idx < n; idx++ {
			out[idx] = uint16(f.Data[idx])
		}
		return out, 1, nil
	case camera.Mono16:
		out := make([]uint16, n)
		for idx := 0; idx < n; idx++ {
			out[idx] = binary.LittleEndian.Uint16(f.Data[2*idx:])
		}
		return out, 1, nil
	case camera.RGB8:
		// interleaved RGB to three planes
		out := make([]uint16, 3*n)
		for idx := 0; idx < n; idx++ {
			for c := 0; c < 3; c++ {
				out[c*n+idx] = uint16(f.Data[3*idx+c])
			}
		}
		return out, 3, nil
	default:
		return nil, 0, ErrUnsupportedFormat{f.PixelFormat}
	}
}

// FrameCards are the header cards describing f
func FrameCards(f invoker.FrameInfo) []fitsio.Card {
	return []fitsio.Card{
		{Name: "PIXFMT", Value: f.PixelFormat.String(), Comment: "GenICam pixel format"},
		{Name: "FRAMEID", Value: int64(f.FrameID), Comment: "device frame counter"},
		{Name: "DATE-OBS", Value: f.SystemTimestamp.UTC().Format(time.RFC3339Nano), Comment: "host time of frame completion"},
	}
}

// WriteFits streams f as a 16-bit FITS image to w.  Color frames become a
// cube with one plane per channel.
func WriteFits(w io.Writer, metadata []fitsio.Card, f invoker.FrameInfo) error {
	buffer, nplanes, err := planes(f)
	if err != nil {
		return err
	}
	metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{f.Width, f.Height}
	if nplanes > 1 {
		dims = append(dims, nplanes)
	}
	im := fitsio.NewImage(16, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	// FITS has no unsigned 16-bit type, shift by BZERO
	bufOut := make([]int16, len(buffer))
	for idx := 0; idx < len(buffer); idx++ {
		bufOut[idx] = int16(buffer[idx] - 32768)
	}
	err = im.Write(bufOut)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
