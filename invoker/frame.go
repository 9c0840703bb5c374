package invoker

import (
	"time"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
)

// Ownership says who owns the memory behind FrameInfo.Data
type Ownership int

const (
	// Borrowed data is a view of a native stream buffer.  The buffer has
	// already been requeued when the callback runs, so the data is only
	// valid until the callback returns and must not be retained.
	Borrowed Ownership = iota

	// Owned data is a private copy.  The receiver may keep it and should
	// call Release when done so the block can be reused.
	Owned
)

func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}

// FrameInfo is the record delivered to the callback for every completed buffer
type FrameInfo struct {
	// Data is the image payload, see Ownership
	Data []byte

	// Size is len(Data) in bytes
	Size int

	// PixelFormat is the GenICam pixel format of Data
	PixelFormat camera.PixelFormat

	// Width is the frame width in pixels
	Width int

	// Height is the frame height in pixels
	Height int

	// SystemTimestamp is the host time the frame was completed
	SystemTimestamp time.Time

	// FrameID is the device frame counter
	FrameID uint64

	// IsCopy is true when Data was copied out of the native buffer
	IsCopy bool

	// Ownership tags Data as borrowed or owned
	Ownership Ownership

	// Err is set when the completed buffer could not be read.  Data is nil
	// and Size is zero in that case.
	Err error

	release func()
}

// Valid is true if the frame carries a payload
func (f FrameInfo) Valid() bool {
	return f.Err == nil && f.Size > 0
}

// Release returns an owned copy to the pool it came from.  It is a no-op for
// borrowed frames and safe to call more than once.  Data must not be used
// after Release.
func (f FrameInfo) Release() {
	if f.release != nil {
		f.release()
	}
}

// Callback receives each delivered frame.  It runs on the stream's
// background context and blocks delivery of the next frame and the recycling
// of buffers until it returns.
type Callback func(FrameInfo)
