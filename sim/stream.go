package sim

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
)

// ErrStreamClosed is returned by StartThread after Close
var ErrStreamClosed = errors.New("sim: stream closed")

// pendingFrames is the depth of the frame queue between the device and the
// stream thread.  Frames beyond it are dropped, like a full transport FIFO.
const pendingFrames = 64

// frame is one image the device has started sending
type frame struct {
	id      uint64
	width   int
	height  int
	format  camera.PixelFormat
	payload int
	corrupt bool
	ts      time.Time
}

// Stream is the simulated camera.Stream.  Buffers pushed by the client wait
// in the input queue; the stream thread fills them with incoming frames,
// moves them to the output queue and signals EventBufferDone.
type Stream struct {
	cam  *Camera
	sink camera.EventSink

	mu      sync.Mutex
	input   []*camera.Buffer
	output  []*camera.Buffer
	stop    chan struct{}
	done    chan struct{}
	running bool
	closed  bool

	failThread error
	failClose  error

	pending chan frame

	underruns atomic.Uint64
	dropped   atomic.Uint64
	completed atomic.Uint64
}

func newStream(c *Camera, sink camera.EventSink) *Stream {
	return &Stream{
		cam:     c,
		sink:    sink,
		pending: make(chan frame, pendingFrames),
	}
}

// PushBuffer appends b to the input queue
func (s *Stream) PushBuffer(b *camera.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = append(s.input, b)
}

// PopBuffer removes the oldest completed buffer, nil if there is none
func (s *Stream) PopBuffer() *camera.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.output) == 0 {
		return nil
	}
	b := s.output[0]
	s.output[0] = nil
	s.output = s.output[1:]
	return b
}

// NBuffers is the length of the input and output queues
func (s *Stream) NBuffers() (input, output int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.input), len(s.output)
}

// QueuedBuffers is a snapshot of the input queue
func (s *Stream) QueuedBuffers() []*camera.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*camera.Buffer, len(s.input))
	copy(out, s.input)
	return out
}

// Underruns counts frames that arrived while the input queue was empty
func (s *Stream) Underruns() uint64 {
	return s.underruns.Load()
}

// Dropped counts frames lost to a full transport queue
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// Completed counts buffers moved to the output queue
func (s *Stream) Completed() uint64 {
	return s.completed.Load()
}

// StartThread starts the stream thread.  The sink sees EventInit before any
// buffer.  Starting a running stream does nothing.
func (s *Stream) StartThread() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if s.running {
		return nil
	}
	if s.failThread != nil {
		return s.failThread
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	go s.run(s.stop, s.done)
	return nil
}

// StopThread stops the stream thread and waits for it to exit.  With
// deleteBuffers both queues are emptied and frames in flight are discarded.
func (s *Stream) StopThread(deleteBuffers bool) error {
	s.mu.Lock()
	var done chan struct{}
	if s.running {
		close(s.stop)
		done = s.done
		s.running = false
	}
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	if !deleteBuffers {
		return nil
	}
	s.mu.Lock()
	s.input = nil
	s.output = nil
	s.mu.Unlock()
	for {
		select {
		case <-s.pending:
		default:
			return nil
		}
	}
}

// Close stops the thread, frees the buffers and detaches the stream from its
// camera
func (s *Stream) Close() error {
	err := s.StopThread(true)
	s.mu.Lock()
	s.closed = true
	if err == nil {
		err = s.failClose
	}
	s.mu.Unlock()
	s.cam.detach(s)
	return err
}

// FailStartThread makes StartThread return err while the thread is stopped.
// A nil err clears it.
func (s *Stream) FailStartThread(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failThread = err
}

// FailClose makes Close report err.  The stream is still released.
func (s *Stream) FailClose(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failClose = err
}

// submit hands f to the stream thread without blocking
func (s *Stream) submit(f frame) {
	select {
	case s.pending <- f:
	default:
		s.dropped.Add(1)
	}
}

func (s *Stream) emit(ev camera.StreamEvent) {
	if s.sink != nil {
		s.sink(ev, s)
	}
}

func (s *Stream) run(stop, done chan struct{}) {
	defer close(done)
	s.emit(camera.EventInit)
	for {
		select {
		case <-stop:
			s.emit(camera.EventExit)
			return
		case f := <-s.pending:
			if s.capture(f) {
				s.emit(camera.EventBufferDone)
			}
		}
	}
}

// capture fills the oldest input buffer with f and moves it to the output
// queue.  It reports false if there was no buffer.
func (s *Stream) capture(f frame) bool {
	s.mu.Lock()
	if len(s.input) == 0 {
		s.mu.Unlock()
		s.underruns.Add(1)
		return false
	}
	b := s.input[0]
	s.input[0] = nil
	s.input = s.input[1:]
	s.mu.Unlock()

	render(b, f)

	s.mu.Lock()
	s.output = append(s.output, b)
	s.mu.Unlock()
	s.completed.Add(1)
	return true
}

// render writes the test pattern of f into b.  Byte k of frame id holds
// byte(k + id), so consecutive frames differ everywhere.
func render(b *camera.Buffer, f frame) {
	b.PixelFormat = f.format
	b.Width = f.width
	b.Height = f.height
	b.FrameID = f.id
	b.SystemTimestamp = f.ts

	data := b.Data()
	n := f.payload
	status := camera.BufferSuccess
	switch {
	case n > len(data):
		n = len(data)
		status = camera.BufferSizeMismatch
	case f.corrupt:
		n /= 2
		status = camera.BufferMissingPackets
	}
	for k := 0; k < n; k++ {
		data[k] = byte(uint64(k) + f.id)
	}
	b.Complete(status, n)
}
