/*
Package invoker controls the frame acquisition of a single camera.

An Invoker owns the camera's stream: it creates it lazily on the first
StartAcquisition, sizes its buffer pool, applies trigger strategies and binds
the delivery routine that hands every completed buffer to a user Callback.

Every reconfiguration that touches the stream follows the same protocol:
stop the acquisition, mutate, restart it.  No frame is ever delivered with a
mix of old and new settings.

The callback runs on the stream's background context.  It must return
promptly, since the next frame is not delivered and buffers are not recycled
until it does, and it must not call back into the Invoker.
*/
package invoker

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
)

// DefaultBufferCount is the pool size of a new Invoker
const DefaultBufferCount = 4

// Invoker manages the acquisition stream of one camera
type Invoker struct {
	mu sync.Mutex

	// cam is borrowed for the lifetime of the invoker
	cam camera.Camera
	cb  Callback

	// stream is nil until the first start and after a reset
	stream   camera.Stream
	streamID uuid.UUID

	acqStrategy AcquisitionStrategy
	bufStrategy BufferStrategy

	// hwSource is "" when unset
	hwSource string

	// frameCount is 0 until SetFrameCountPerTrigger succeeds
	frameCount int

	bufferCount int
	acquiring   bool

	stats counters
	log   *slog.Logger
}

// New returns an Invoker for cam which delivers frames to cb.  The camera is
// not touched until the first configuration or start.
func New(cam camera.Camera, cb Callback) *Invoker {
	return &Invoker{
		cam:         cam,
		cb:          cb,
		acqStrategy: ContinuousRun,
		bufStrategy: InPlace,
		bufferCount: DefaultBufferCount,
		log:         slog.Default().With("component", "invoker"),
	}
}

// SetLogger replaces the logger.  A stream that already exists keeps
// logging to the previous one until it is recreated.
func (i *Invoker) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.log = l
}

// StartAcquisition creates the stream if needed and starts the camera.
// It is an error to start twice.
func (i *Invoker) StartAcquisition() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.startLocked()
}

// StopAcquisition stops the camera.  The stream and its buffers are kept, a
// later start reuses them.  Frames already being delivered are not recalled.
func (i *Invoker) StopAcquisition() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stopLocked()
}

// SetBufferCount sets the size of the buffer pool.  Without a stream the
// value is only recorded; with one the pool is rebuilt between a stop and a
// restart of the acquisition.  A running acquisition is restarted even if
// the rebuild fails.
func (i *Invoker) SetBufferCount(n int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if n <= 0 {
		return ErrInvalidBufferCount
	}
	if i.stream == nil {
		i.bufferCount = n
		return nil
	}
	size, err := i.cam.PayloadSize()
	if err != nil {
		return errors.Wrap(err, "querying payload size")
	}
	was, err := i.pause()
	if err != nil {
		return err
	}
	if err := i.resizeBufferPool(n, size); err != nil {
		return i.restore(was, err)
	}
	return i.resume(was)
}

// SetHardwareTriggerSource sets the line used by HardwareTrigger, e.g.
// "Line0".  It takes effect the next time the strategy is applied.
func (i *Invoker) SetHardwareTriggerSource(source string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hwSource = source
}

// SetBufferStrategy selects InPlace or Copy delivery.  The delivery routine
// is bound when a stream is created, so an existing stream is torn down:
// stop, reset, restart.  Without a stream the value is recorded and used by
// the next start.  If the old stream does not close cleanly the strategy is
// left unchanged and a running acquisition restarts on a new stream.
func (i *Invoker) SetBufferStrategy(s BufferStrategy) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !s.valid() {
		return errors.Wrapf(ErrUnknownStrategy, "%v", s)
	}
	if i.stream == nil {
		i.bufStrategy = s
		return nil
	}
	if s == i.bufStrategy {
		return nil
	}
	was, err := i.pause()
	if err != nil {
		return err
	}
	if err := i.resetStream(); err != nil {
		return i.restore(was, err)
	}
	i.bufStrategy = s
	return i.resume(was)
}

// ResetStream stops a running acquisition and destroys the stream and its
// buffers.  It blocks until the stream's background context has exited.
func (i *Invoker) ResetStream() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stream == nil {
		return ErrNoStream
	}
	if _, err := i.pause(); err != nil {
		return err
	}
	return i.resetStream()
}

// Close stops the acquisition and releases the stream.  The invoker may be
// started again afterwards.
func (i *Invoker) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, err := i.pause(); err != nil {
		return err
	}
	if i.stream == nil {
		return nil
	}
	return i.resetStream()
}

// IsInAcquisition is true between a successful start and a stop
func (i *Invoker) IsInAcquisition() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.acquiring
}

// AcquisitionStrategy is the last successfully applied strategy
func (i *Invoker) AcquisitionStrategy() AcquisitionStrategy {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.acqStrategy
}

// BufferStrategy is the buffer strategy of the current or next stream
func (i *Invoker) BufferStrategy() BufferStrategy {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.bufStrategy
}

// BufferCount is the buffer pool size
func (i *Invoker) BufferCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.bufferCount
}

// HardwareTriggerSource is the configured trigger line, "" if unset
func (i *Invoker) HardwareTriggerSource() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hwSource
}

// FrameCountPerTrigger is the burst length, 0 if never set
func (i *Invoker) FrameCountPerTrigger() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.frameCount
}

// HasStream is true if a stream exists
func (i *Invoker) HasStream() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stream != nil
}

// StreamID identifies the current stream instance.  It changes every time
// the stream is recreated and is uuid.Nil without a stream.
func (i *Invoker) StreamID() uuid.UUID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.streamID
}

// Stats returns a snapshot of the delivery counters
func (i *Invoker) Stats() Stats {
	return i.stats.snapshot()
}
