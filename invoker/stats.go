package invoker

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of delivery counters
type Stats struct {
	// FramesDelivered counts callbacks made with a valid frame
	FramesDelivered uint64 `json:"framesDelivered"`

	// FramesCopied counts frames delivered through the Copy strategy
	FramesCopied uint64 `json:"framesCopied"`

	// DeliveryFaults counts buffer-done events that could not produce a frame
	DeliveryFaults uint64 `json:"deliveryFaults"`

	// BytesDelivered is the sum of the sizes of delivered frames
	BytesDelivered uint64 `json:"bytesDelivered"`

	// StreamsCreated counts stream (re)creations
	StreamsCreated uint64 `json:"streamsCreated"`

	// LastFrameAt is the system timestamp of the last delivered frame
	LastFrameAt time.Time `json:"lastFrameAt"`
}

// counters are written from the stream context and read from anywhere
type counters struct {
	delivered atomic.Uint64
	copied    atomic.Uint64
	faults    atomic.Uint64
	bytes     atomic.Uint64
	streams   atomic.Uint64
	lastFrame atomic.Int64 // unix ns
}

func (c *counters) frame(size int, copied bool, ts time.Time) {
	c.delivered.Add(1)
	c.bytes.Add(uint64(size))
	if copied {
		c.copied.Add(1)
	}
	c.lastFrame.Store(ts.UnixNano())
}

func (c *counters) snapshot() Stats {
	s := Stats{
		FramesDelivered: c.delivered.Load(),
		FramesCopied:    c.copied.Load(),
		DeliveryFaults:  c.faults.Load(),
		BytesDelivered:  c.bytes.Load(),
		StreamsCreated:  c.streams.Load(),
	}
	if ns := c.lastFrame.Load(); ns != 0 {
		s.LastFrameAt = time.Unix(0, ns)
	}
	return s
}
