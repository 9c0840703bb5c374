package invoker

import (
	"strconv"

	"github.com/pkg/errors"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
	"github.jpl.nasa.gov/bdube/acqinvoker/util"
)

// featureWrite is one feature write of a strategy transition
type featureWrite struct {
	feature, value string
}

// triggerWrites lists the writes that put the camera in strategy s.
// Burst and trigger behavior is layered on continuous acquisition mode.
func (i *Invoker) triggerWrites(s AcquisitionStrategy) []featureWrite {
	switch s {
	case SoftwareTrigger:
		return []featureWrite{
			{camera.FeatureTriggerSelector, camera.TriggerFrameBurstStart},
			{camera.FeatureTriggerMode, camera.TriggerModeOn},
			{camera.FeatureTriggerSource, camera.TriggerSourceSoftware},
		}
	case HardwareTrigger:
		return []featureWrite{
			{camera.FeatureTriggerSelector, camera.TriggerFrameBurstStart},
			{camera.FeatureTriggerMode, camera.TriggerModeOn},
			{camera.FeatureTriggerSource, i.hwSource},
		}
	default:
		return []featureWrite{
			{camera.FeatureTriggerMode, camera.TriggerModeOff},
		}
	}
}

// applyTriggerWrites performs the writes of strategy s in order
func (i *Invoker) applyTriggerWrites(s AcquisitionStrategy) error {
	for _, w := range i.triggerWrites(s) {
		if err := i.cam.SetString(w.feature, w.value); err != nil {
			return featureErr(w.feature, w.value, err)
		}
	}
	return nil
}

// SetAcquisitionStrategy reconfigures the camera's triggering.  A running
// acquisition is stopped first and restarted once every feature write has
// succeeded.  If a write fails the writes of the previous strategy are
// replayed and the acquisition restarts; if that fails too the camera is in
// an unknown trigger state and the acquisition stays stopped.
// AcquisitionStrategy reports the previous strategy in both cases.
func (i *Invoker) SetAcquisitionStrategy(s AcquisitionStrategy) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !s.valid() {
		return errors.Wrapf(ErrUnknownStrategy, "%v", s)
	}
	if s == HardwareTrigger && i.hwSource == "" {
		return ErrNoHardwareTriggerSource
	}

	was, err := i.pause()
	if err != nil {
		return err
	}

	mode, err := i.cam.GetString(camera.FeatureAcquisitionMode)
	if err != nil {
		return i.restore(was, featureErr(camera.FeatureAcquisitionMode, "", err))
	}
	if mode != camera.AcquisitionModeContinuous {
		err = i.cam.SetString(camera.FeatureAcquisitionMode, camera.AcquisitionModeContinuous)
		if err != nil {
			return i.restore(was, featureErr(camera.FeatureAcquisitionMode, camera.AcquisitionModeContinuous, err))
		}
	}
	for _, w := range i.triggerWrites(s) {
		if err := i.cam.SetString(w.feature, w.value); err != nil {
			i.log.Error("trigger strategy not applied", "strategy", s, "feature", w.feature, "err", err)
			ferr := featureErr(w.feature, w.value, err)
			if rerr := i.applyTriggerWrites(i.acqStrategy); rerr != nil {
				i.log.Error("previous trigger strategy not restored", "strategy", i.acqStrategy, "err", rerr)
				return errors.WithMessagef(ferr, "restoring %v: %v", i.acqStrategy, rerr)
			}
			return i.restore(was, ferr)
		}
	}

	prev := i.acqStrategy
	i.acqStrategy = s
	i.log.Info("acquisition strategy changed", "from", prev, "to", s, "source", i.hwSource)
	return i.resume(was)
}

// IsAcquisitionStrategySupported probes whether the camera can run strategy
// s.  It changes nothing and reserves nothing.
//
// ContinuousRun is always supported.  HardwareTrigger needs a trigger source
// the camera offers that no other trigger has claimed, and the
// FrameBurstStart trigger.  SoftwareTrigger needs software triggering and
// FrameBurstStart.
func (i *Invoker) IsAcquisitionStrategySupported(s AcquisitionStrategy) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	source := i.hwSource

	switch s {
	case ContinuousRun:
		return true, nil
	case HardwareTrigger:
		if source == "" {
			return false, nil
		}
		sources, err := i.cam.AvailableTriggerSources()
		if err != nil {
			return false, errors.Wrap(err, "listing trigger sources")
		}
		if !util.ContainsString(sources, source) {
			i.log.Debug("trigger source not offered", "source", source, "available", util.CSV(sources))
			return false, nil
		}
		inUse, err := i.cam.InUseTriggerSources()
		if err != nil {
			return false, errors.Wrap(err, "listing trigger sources in use")
		}
		if util.ContainsString(inUse, source) {
			i.log.Debug("trigger source in use", "source", source, "in_use", util.CSV(inUse))
			return false, nil
		}
		return i.hasBurstTrigger()
	case SoftwareTrigger:
		ok, err := i.cam.IsSoftwareTriggerSupported()
		if err != nil {
			return false, errors.Wrap(err, "querying software trigger support")
		}
		if !ok {
			return false, nil
		}
		return i.hasBurstTrigger()
	default:
		return false, errors.Wrapf(ErrUnknownStrategy, "%v", s)
	}
}

func (i *Invoker) hasBurstTrigger() (bool, error) {
	triggers, err := i.cam.AvailableTriggers()
	if err != nil {
		return false, errors.Wrap(err, "listing triggers")
	}
	return util.ContainsString(triggers, camera.TriggerFrameBurstStart), nil
}

// SetFrameCountPerTrigger sets how many frames each trigger captures.
// n is validated before the camera is asked whether it has the
// AcquisitionBurstFrameCount feature.  A running acquisition is restarted
// whether or not the write succeeds.
func (i *Invoker) SetFrameCountPerTrigger(n int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if n <= 0 {
		return ErrInvalidFrameCount
	}
	ok, err := i.cam.IsFeatureAvailable(camera.FeatureAcquisitionBurstFrameCount)
	if err != nil {
		return featureErr(camera.FeatureAcquisitionBurstFrameCount, "", err)
	}
	if !ok {
		return ErrBurstCountUnavailable
	}

	was, err := i.pause()
	if err != nil {
		return err
	}
	if err := i.cam.SetInteger(camera.FeatureAcquisitionBurstFrameCount, int64(n)); err != nil {
		return i.restore(was, featureErr(camera.FeatureAcquisitionBurstFrameCount, strconv.Itoa(n), err))
	}
	i.frameCount = n
	i.log.Info("frame count per trigger changed", "frames", n)
	return i.resume(was)
}

// SoftwareTrigger fires the camera's software trigger once.  The
// SoftwareTrigger strategy must be active and acquiring.
func (i *Invoker) SoftwareTrigger() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.acqStrategy != SoftwareTrigger {
		return errors.Wrapf(ErrWrongStrategy, "software trigger under %v", i.acqStrategy)
	}
	if !i.acquiring {
		return ErrNotAcquiring
	}
	return errors.Wrap(i.cam.SoftwareTrigger(), "software trigger")
}
