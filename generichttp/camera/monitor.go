package camera

import (
	"sync"

	"github.jpl.nasa.gov/bdube/acqinvoker/invoker"
)

// Monitor keeps the most recent frame delivered by an invoker so it can be
// served on demand.  Its Callback method is the invoker.Callback.
type Monitor struct {
	mu      sync.Mutex
	last    invoker.FrameInfo
	have    bool
	frames  uint64
	faults  uint64
	lastErr error
}

// NewMonitor returns an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Callback records f.  Borrowed frames are copied since their memory goes
// back to the stream when the callback returns; owned frames are adopted
// and the frame they replace is released.  The monitor is the last holder
// of every frame it is given.
func (m *Monitor) Callback(f invoker.FrameInfo) {
	m.mu.Lock()
	if f.Err != nil {
		m.faults++
		m.lastErr = f.Err
		m.mu.Unlock()
		return
	}
	kept := f
	if f.Ownership == invoker.Borrowed {
		kept.Data = append([]byte(nil), f.Data...)
	}
	prev, had := m.last, m.have
	m.last, m.have = kept, true
	m.frames++
	m.mu.Unlock()
	if had {
		prev.Release()
	}
}

// Latest returns a private copy of the most recent frame, false if no frame
// has been seen
func (m *Monitor) Latest() (invoker.FrameInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.have {
		return invoker.FrameInfo{}, false
	}
	f := invoker.FrameInfo{
		Data:            append([]byte(nil), m.last.Data...),
		Size:            m.last.Size,
		PixelFormat:     m.last.PixelFormat,
		Width:           m.last.Width,
		Height:          m.last.Height,
		SystemTimestamp: m.last.SystemTimestamp,
		FrameID:         m.last.FrameID,
		IsCopy:          true,
		Ownership:       invoker.Owned,
	}
	return f, true
}

// MonitorStats are the monitor's counters
type MonitorStats struct {
	Frames    uint64 `json:"frames"`
	Faults    uint64 `json:"faults"`
	LastError string `json:"lastError,omitempty"`
}

// Stats returns the monitor's counters
func (m *Monitor) Stats() MonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MonitorStats{Frames: m.frames, Faults: m.faults}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// Close releases the frame held by the monitor
func (m *Monitor) Close() {
	m.mu.Lock()
	prev, had := m.last, m.have
	m.last, m.have = invoker.FrameInfo{}, false
	m.mu.Unlock()
	if had {
		prev.Release()
	}
}
