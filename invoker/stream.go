package invoker

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
)

// the methods in this file expect i.mu to be held

// ensureStreamCreated creates the stream and fills its pool if there is no
// stream yet.  The payload is queried before the stream is opened so a
// failure leaves nothing half-built.
func (i *Invoker) ensureStreamCreated() error {
	if i.stream != nil {
		return nil
	}
	size, err := i.cam.PayloadSize()
	if err != nil {
		return errors.Wrap(err, "querying payload size")
	}
	d := newDelivery(i.bufStrategy, i.cb, &i.stats, i.log)
	s, err := i.cam.CreateStream(d.sink)
	if err != nil {
		return errors.Wrap(err, "creating stream")
	}
	for n := 0; n < i.bufferCount; n++ {
		s.PushBuffer(camera.NewBuffer(size))
	}
	i.stream = s
	i.streamID = uuid.New()
	i.stats.streams.Add(1)
	i.log.Info("stream created",
		"stream_id", i.streamID,
		"buffer_strategy", i.bufStrategy,
		"buffer_count", i.bufferCount,
		"payload_bytes", size)
	return nil
}

// resizeBufferPool replaces the stream's pool with n buffers of size bytes.
// Delivery is stopped while the queues are rebuilt, so no frame is reported
// against a half-built pool.  The caller stops the acquisition first.  If the
// stream thread cannot be restarted the stream is released; the next start
// builds a new one with n buffers.
func (i *Invoker) resizeBufferPool(n, size int) error {
	if i.stream == nil {
		return ErrNoStream
	}
	if n <= 0 {
		return ErrInvalidBufferCount
	}
	if err := i.stream.StopThread(true); err != nil {
		return errors.Wrap(err, "stopping stream thread")
	}
	for k := 0; k < n; k++ {
		i.stream.PushBuffer(camera.NewBuffer(size))
	}
	i.bufferCount = n
	if err := i.stream.StartThread(); err != nil {
		i.log.Error("stream thread not restarted, releasing stream", "stream_id", i.streamID, "err", err)
		if cerr := i.resetStream(); cerr != nil {
			i.log.Error("stream release failed", "err", cerr)
		}
		return errors.Wrap(err, "restarting stream thread")
	}
	i.log.Info("buffer pool resized", "stream_id", i.streamID, "buffer_count", n, "payload_bytes", size)
	return nil
}

// resetStream closes the stream, waiting for its background context to
// exit, and forgets it.  The next start creates a new one.
func (i *Invoker) resetStream() error {
	if i.stream == nil {
		return ErrNoStream
	}
	err := i.stream.Close()
	i.log.Info("stream released", "stream_id", i.streamID)
	i.stream = nil
	i.streamID = uuid.Nil
	return errors.Wrap(err, "closing stream")
}

// startLocked starts the camera, creating the stream on first use
func (i *Invoker) startLocked() error {
	if i.acquiring {
		return ErrAlreadyAcquiring
	}
	if err := i.ensureStreamCreated(); err != nil {
		return err
	}
	if err := i.cam.StartAcquisition(); err != nil {
		return errors.Wrap(err, "starting acquisition")
	}
	i.acquiring = true
	i.log.Info("acquisition started", "stream_id", i.streamID, "strategy", i.acqStrategy)
	return nil
}

// stopLocked stops the camera.  The stream is kept.
func (i *Invoker) stopLocked() error {
	if !i.acquiring {
		return ErrNotAcquiring
	}
	if err := i.cam.StopAcquisition(); err != nil {
		return errors.Wrap(err, "stopping acquisition")
	}
	i.acquiring = false
	i.log.Info("acquisition stopped", "stream_id", i.streamID)
	return nil
}

// pause stops the acquisition if it is running and reports whether it was
func (i *Invoker) pause() (bool, error) {
	if !i.acquiring {
		return false, nil
	}
	return true, i.stopLocked()
}

// resume restarts the acquisition if was is true
func (i *Invoker) resume(was bool) error {
	if !was {
		return nil
	}
	return i.startLocked()
}

// restore restarts an acquisition paused for a change that failed and
// returns err, annotated when the restart fails as well
func (i *Invoker) restore(was bool, err error) error {
	if rerr := i.resume(was); rerr != nil {
		i.log.Error("acquisition not restarted after a failed change", "err", rerr)
		return errors.WithMessagef(err, "acquisition not restarted: %v", rerr)
	}
	return err
}
