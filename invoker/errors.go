package invoker

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoStream is returned by operations that need a stream when none
	// has been created yet
	ErrNoStream = errors.New("no stream, start an acquisition first")

	// ErrAlreadyAcquiring is returned when StartAcquisition is called twice
	ErrAlreadyAcquiring = errors.New("acquisition already running")

	// ErrNotAcquiring is returned when an operation needs a running acquisition
	ErrNotAcquiring = errors.New("acquisition not running")

	// ErrNoHardwareTriggerSource is returned when HardwareTrigger is
	// requested before a trigger source was set
	ErrNoHardwareTriggerSource = errors.New("hardware trigger source not set")

	// ErrBurstCountUnavailable is returned when the camera does not expose
	// AcquisitionBurstFrameCount
	ErrBurstCountUnavailable = errors.New("camera has no burst frame count feature")

	// ErrInvalidBufferCount is returned for buffer counts below one
	ErrInvalidBufferCount = errors.New("buffer count must be positive")

	// ErrInvalidFrameCount is returned for frame counts below one
	ErrInvalidFrameCount = errors.New("frame count per trigger must be positive")

	// ErrUnknownStrategy is returned for strategies outside the enumeration
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrWrongStrategy is returned when an operation does not apply to the
	// active acquisition strategy
	ErrWrongStrategy = errors.New("operation not valid for the acquisition strategy")
)

// FeatureError is a failed feature access on the camera
type FeatureError struct {
	// Feature is the name of the feature
	Feature string

	// Value is the value being written, empty for reads
	Value string

	// Err is what the camera returned
	Err error
}

// Error satisfies the error interface
func (e *FeatureError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("reading %s: %v", e.Feature, e.Err)
	}
	return fmt.Sprintf("writing %s=%s: %v", e.Feature, e.Value, e.Err)
}

// Unwrap returns the camera's error
func (e *FeatureError) Unwrap() error {
	return e.Err
}

func featureErr(feature, value string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&FeatureError{Feature: feature, Value: value, Err: err})
}
