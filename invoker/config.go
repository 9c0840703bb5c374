package invoker

import "github.com/pkg/errors"

// Config is a declarative acquisition setup, suitable for a config file
type Config struct {
	// AcquisitionStrategy is ContinuousRun, SoftwareTrigger or HardwareTrigger
	AcquisitionStrategy string `koanf:"AcquisitionStrategy" yaml:"AcquisitionStrategy"`

	// BufferStrategy is InPlace or Copy
	BufferStrategy string `koanf:"BufferStrategy" yaml:"BufferStrategy"`

	// BufferCount is the pool size; zero keeps the current value
	BufferCount int `koanf:"BufferCount" yaml:"BufferCount"`

	// HardwareTriggerSource is the trigger line for HardwareTrigger
	HardwareTriggerSource string `koanf:"HardwareTriggerSource" yaml:"HardwareTriggerSource"`

	// FrameCountPerTrigger is the burst length; zero leaves the camera alone
	FrameCountPerTrigger int `koanf:"FrameCountPerTrigger" yaml:"FrameCountPerTrigger"`
}

// DefaultConfig matches the state of a new Invoker
func DefaultConfig() Config {
	return Config{
		AcquisitionStrategy: ContinuousRun.String(),
		BufferStrategy:      InPlace.String(),
		BufferCount:         DefaultBufferCount,
	}
}

// Configure applies c field by field: buffer count, buffer strategy,
// hardware trigger source, acquisition strategy, frame count.  It stops at
// the first error; the fields before it stay applied.
func (i *Invoker) Configure(c Config) error {
	acq := ContinuousRun
	if c.AcquisitionStrategy != "" {
		s, err := ParseAcquisitionStrategy(c.AcquisitionStrategy)
		if err != nil {
			return err
		}
		acq = s
	}
	buf := InPlace
	if c.BufferStrategy != "" {
		s, err := ParseBufferStrategy(c.BufferStrategy)
		if err != nil {
			return err
		}
		buf = s
	}

	if c.BufferCount != 0 {
		if err := i.SetBufferCount(c.BufferCount); err != nil {
			return errors.Wrap(err, "BufferCount")
		}
	}
	if err := i.SetBufferStrategy(buf); err != nil {
		return errors.Wrap(err, "BufferStrategy")
	}
	if c.HardwareTriggerSource != "" {
		i.SetHardwareTriggerSource(c.HardwareTriggerSource)
	}
	if err := i.SetAcquisitionStrategy(acq); err != nil {
		return errors.Wrap(err, "AcquisitionStrategy")
	}
	if c.FrameCountPerTrigger != 0 {
		if err := i.SetFrameCountPerTrigger(c.FrameCountPerTrigger); err != nil {
			return errors.Wrap(err, "FrameCountPerTrigger")
		}
	}
	return nil
}
