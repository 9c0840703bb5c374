package invoker

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
)

// errEmptyOutputQueue is reported to the callback when a buffer-done event
// finds nothing to pop
var errEmptyOutputQueue = errors.New("buffer-done event with an empty output queue")

// payloadPolicy turns the image data of a native buffer into what the
// callback receives.  release is nil when there is nothing to give back.
type payloadPolicy func(src []byte) (data []byte, own Ownership, release func())

// inPlace borrows the native memory
func inPlace(src []byte) ([]byte, Ownership, func()) {
	return src, Borrowed, nil
}

// copyPool hands out blocks for the Copy strategy and takes them back on
// FrameInfo.Release
type copyPool struct {
	pool sync.Pool
}

func (p *copyPool) copyOut(src []byte) ([]byte, Ownership, func()) {
	var blk []byte
	if v, ok := p.pool.Get().(*[]byte); ok && cap(*v) >= len(src) {
		blk = (*v)[:len(src)]
	} else {
		blk = make([]byte, len(src))
	}
	copy(blk, src)
	var once sync.Once
	release := func() {
		once.Do(func() {
			b := blk[:0]
			p.pool.Put(&b)
		})
	}
	return blk, Owned, release
}

// delivery is the event sink bound to one stream instance.  Its policy is
// fixed when the stream is created; changing the buffer strategy means a new
// stream and a new delivery.
type delivery struct {
	strategy BufferStrategy
	policy   payloadPolicy
	cb       Callback
	stats    *counters
	log      *slog.Logger
}

func newDelivery(strategy BufferStrategy, cb Callback, stats *counters, log *slog.Logger) *delivery {
	d := &delivery{strategy: strategy, cb: cb, stats: stats, log: log}
	switch strategy {
	case Copy:
		p := &copyPool{}
		d.policy = p.copyOut
	default:
		d.policy = inPlace
	}
	return d
}

// sink is the camera.EventSink handed to CreateStream
func (d *delivery) sink(ev camera.StreamEvent, s camera.Stream) {
	switch ev {
	case camera.EventInit:
		if err := raiseThreadPriority(); err != nil {
			d.log.Debug("could not raise stream thread priority", "err", err)
		}
	case camera.EventBufferDone:
		d.deliver(s)
	}
}

// deliver pops one completed buffer, builds the frame, requeues the buffer
// and only then calls back
func (d *delivery) deliver(s camera.Stream) {
	buf := s.PopBuffer()
	if buf == nil {
		d.fault(errEmptyOutputQueue)
		return
	}
	src, err := buf.ImageData()
	if err != nil {
		buf.Reset()
		s.PushBuffer(buf)
		d.fault(err)
		return
	}
	data, own, release := d.policy(src)
	info := FrameInfo{
		Data:            data,
		Size:            len(data),
		PixelFormat:     buf.PixelFormat,
		Width:           buf.Width,
		Height:          buf.Height,
		SystemTimestamp: buf.SystemTimestamp,
		FrameID:         buf.FrameID,
		IsCopy:          own == Owned,
		Ownership:       own,
		release:         release,
	}
	buf.Reset()
	s.PushBuffer(buf)
	d.stats.frame(info.Size, info.IsCopy, info.SystemTimestamp)
	if d.cb != nil {
		d.cb(info)
	}
}

func (d *delivery) fault(err error) {
	d.stats.faults.Add(1)
	d.log.Warn("delivery fault", "err", err)
	if d.cb != nil {
		d.cb(FrameInfo{Err: err})
	}
}
