/*
Package camera describes the capability a machine-vision camera exposes to
an acquisition controller.

The Camera type covers feature access, trigger enumeration and acquisition
start/stop, while Stream covers the buffer queue and the background context
that reports completed buffers.  Neither is implemented here; drivers (or the
sim package) provide them.
*/
package camera

// StreamEvent is the kind of event a Stream reports to its EventSink
type StreamEvent int

const (
	// EventInit is emitted once, on the stream's background context,
	// before any buffer is reported
	EventInit StreamEvent = iota

	// EventBufferDone is emitted each time a buffer has been moved to the
	// output queue and may be popped
	EventBufferDone

	// EventExit is emitted when the background context is about to stop
	EventExit
)

func (e StreamEvent) String() string {
	switch e {
	case EventInit:
		return "init"
	case EventBufferDone:
		return "buffer-done"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// EventSink receives stream events.  It is called from the stream's
// background context, never from the caller of Camera or Stream methods.
type EventSink func(ev StreamEvent, s Stream)

// Camera is the set of operations an acquisition controller needs from a
// camera.  Feature names follow the GenICam SFNC; see the constants in this
// package.
type Camera interface {
	// PayloadSize is the number of bytes a buffer must hold for one frame
	// with the current image settings
	PayloadSize() (int, error)

	// GetString gets a string or enumeration feature
	GetString(feature string) (string, error)

	// SetString sets a string or enumeration feature
	SetString(feature, value string) error

	// GetInteger gets an integer feature
	GetInteger(feature string) (int64, error)

	// SetInteger sets an integer feature
	SetInteger(feature string, value int64) error

	// IsFeatureAvailable is true if the feature exists and is currently
	// accessible
	IsFeatureAvailable(feature string) (bool, error)

	// AvailableTriggerSources lists the values TriggerSource may take
	AvailableTriggerSources() ([]string, error)

	// InUseTriggerSources lists the sources already claimed by a trigger
	InUseTriggerSources() ([]string, error)

	// AvailableTriggers lists the values TriggerSelector may take
	AvailableTriggers() ([]string, error)

	// IsSoftwareTriggerSupported is true if the camera can be triggered
	// by a software command
	IsSoftwareTriggerSupported() (bool, error)

	// SoftwareTrigger issues the software trigger command
	SoftwareTrigger() error

	// CreateStream opens a stream whose background context is already
	// running and reports to sink
	CreateStream(sink EventSink) (Stream, error)

	// StartAcquisition starts the acquisition on the device
	StartAcquisition() error

	// StopAcquisition stops the acquisition on the device
	StopAcquisition() error
}

// Stream is a queue of buffers filled by the device and a background context
// that reports each filled buffer.
type Stream interface {
	// PushBuffer puts an empty buffer on the input queue
	PushBuffer(b *Buffer)

	// PopBuffer takes the oldest filled buffer off the output queue.
	// It returns nil if there is none.
	PopBuffer() *Buffer

	// StartThread starts the background context.  EventInit is emitted
	// from it before anything else.
	StartThread() error

	// StopThread stops the background context and blocks until it has
	// exited.  If deleteBuffers is true both queues are emptied.
	StopThread(deleteBuffers bool) error

	// NBuffers reports the length of the input and output queues
	NBuffers() (input, output int)

	// Close stops the background context and releases every buffer
	Close() error
}
