package camera

import (
	"errors"
	"fmt"
	"time"
)

// BufferStatus is the outcome of a capture into a buffer
type BufferStatus int

const (
	// BufferCleared is the status of a buffer that has not been filled yet
	BufferCleared BufferStatus = iota

	// BufferSuccess means the frame was received whole
	BufferSuccess

	// BufferSizeMismatch means the frame did not fit in the buffer
	BufferSizeMismatch

	// BufferMissingPackets means part of the frame was lost in transit
	BufferMissingPackets

	// BufferAborted means the capture was cancelled
	BufferAborted
)

func (s BufferStatus) String() string {
	switch s {
	case BufferCleared:
		return "cleared"
	case BufferSuccess:
		return "success"
	case BufferSizeMismatch:
		return "size-mismatch"
	case BufferMissingPackets:
		return "missing-packets"
	case BufferAborted:
		return "aborted"
	default:
		return fmt.Sprintf("BufferStatus(%d)", int(s))
	}
}

// ErrBufferNotFilled is returned when image data is requested from a buffer
// that has not completed a capture
var ErrBufferNotFilled = errors.New("buffer holds no completed frame")

// Buffer is a block of memory a stream fills with one frame, plus the
// metadata of that frame
type Buffer struct {
	data     []byte
	received int
	status   BufferStatus

	// PixelFormat is the format of the frame in the buffer
	PixelFormat PixelFormat

	// Width is the width of the frame in pixels
	Width int

	// Height is the height of the frame in pixels
	Height int

	// SystemTimestamp is the host time at which the frame was completed
	SystemTimestamp time.Time

	// FrameID is the device's frame counter
	FrameID uint64
}

// NewBuffer allocates a buffer of size bytes
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Size is the capacity of the buffer in bytes
func (b *Buffer) Size() int {
	return len(b.data)
}

// Data is the whole backing memory of the buffer.  Producers write frames
// into it; consumers should use ImageData.
func (b *Buffer) Data() []byte {
	return b.data
}

// Status is the outcome of the last capture
func (b *Buffer) Status() BufferStatus {
	return b.status
}

// Complete records the outcome of a capture of n bytes
func (b *Buffer) Complete(status BufferStatus, n int) {
	if n > len(b.data) {
		n = len(b.data)
	}
	b.status = status
	b.received = n
}

// Reset clears the status and metadata so the buffer can be queued again
func (b *Buffer) Reset() {
	b.status = BufferCleared
	b.received = 0
	b.PixelFormat = 0
	b.Width = 0
	b.Height = 0
	b.SystemTimestamp = time.Time{}
	b.FrameID = 0
}

// ImageData returns the received frame.  The slice aliases the buffer's
// memory.
func (b *Buffer) ImageData() ([]byte, error) {
	switch b.status {
	case BufferSuccess:
		return b.data[:b.received], nil
	case BufferCleared:
		return nil, ErrBufferNotFilled
	default:
		return nil, fmt.Errorf("frame %d not usable: %s", b.FrameID, b.status)
	}
}
