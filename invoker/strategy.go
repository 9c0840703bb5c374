package invoker

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// AcquisitionStrategy is what initiates the capture of each frame
type AcquisitionStrategy int

const (
	// ContinuousRun lets the camera free-run at its configured frame rate
	ContinuousRun AcquisitionStrategy = iota

	// SoftwareTrigger captures a burst each time a software trigger is issued
	SoftwareTrigger

	// HardwareTrigger captures a burst on each edge of an external trigger line
	HardwareTrigger
)

var acquisitionStrategyNames = []string{"ContinuousRun", "SoftwareTrigger", "HardwareTrigger"}

func (s AcquisitionStrategy) String() string {
	if s.valid() {
		return acquisitionStrategyNames[s]
	}
	return fmt.Sprintf("AcquisitionStrategy(%d)", int(s))
}

func (s AcquisitionStrategy) valid() bool {
	return s >= ContinuousRun && s <= HardwareTrigger
}

// ParseAcquisitionStrategy converts a name such as "SoftwareTrigger" to a
// strategy.  The comparison is case-insensitive.
func ParseAcquisitionStrategy(s string) (AcquisitionStrategy, error) {
	for i, name := range acquisitionStrategyNames {
		if strings.EqualFold(name, s) {
			return AcquisitionStrategy(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownStrategy, "acquisition strategy %q", s)
}

// BufferStrategy is how the payload of a completed buffer reaches the callback
type BufferStrategy int

const (
	// InPlace hands the callback a view of the native buffer, valid only
	// until the callback returns
	InPlace BufferStrategy = iota

	// Copy hands the callback a copy it owns and must Release
	Copy
)

var bufferStrategyNames = []string{"InPlace", "Copy"}

func (s BufferStrategy) String() string {
	if s.valid() {
		return bufferStrategyNames[s]
	}
	return fmt.Sprintf("BufferStrategy(%d)", int(s))
}

func (s BufferStrategy) valid() bool {
	return s == InPlace || s == Copy
}

// ParseBufferStrategy converts "InPlace" or "Copy" to a strategy.
// The comparison is case-insensitive.
func ParseBufferStrategy(s string) (BufferStrategy, error) {
	for i, name := range bufferStrategyNames {
		if strings.EqualFold(name, s) {
			return BufferStrategy(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownStrategy, "buffer strategy %q", s)
}
