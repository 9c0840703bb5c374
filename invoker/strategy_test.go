package invoker_test

import (
	"errors"
	"fmt"
	"testing"

	"github.jpl.nasa.gov/bdube/acqinvoker/invoker"
)

func TestParseAcquisitionStrategy(t *testing.T) {
	for _, s := range []invoker.AcquisitionStrategy{invoker.ContinuousRun, invoker.SoftwareTrigger, invoker.HardwareTrigger} {
		got, err := invoker.ParseAcquisitionStrategy(s.String())
		if err != nil || got != s {
			t.Errorf("expected %v got %v, %v", s, got, err)
		}
	}
	if _, err := invoker.ParseAcquisitionStrategy("FreeRun"); !errors.Is(err, invoker.ErrUnknownStrategy) {
		t.Errorf("expected %v got %v", invoker.ErrUnknownStrategy, err)
	}
}

func TestInvalidStrategiesRejected(t *testing.T) {
	c := newCamera(t, nil)
	inv := invoker.New(c, nil)
	if err := inv.SetAcquisitionStrategy(invoker.AcquisitionStrategy(9)); !errors.Is(err, invoker.ErrUnknownStrategy) {
		t.Errorf("expected %v got %v", invoker.ErrUnknownStrategy, err)
	}
	if err := inv.SetBufferStrategy(invoker.BufferStrategy(-1)); !errors.Is(err, invoker.ErrUnknownStrategy) {
		t.Errorf("expected %v got %v", invoker.ErrUnknownStrategy, err)
	}
	if _, err := inv.IsAcquisitionStrategySupported(invoker.AcquisitionStrategy(9)); !errors.Is(err, invoker.ErrUnknownStrategy) {
		t.Errorf("expected %v got %v", invoker.ErrUnknownStrategy, err)
	}
}

func ExampleParseBufferStrategy() {
	s, _ := invoker.ParseBufferStrategy("copy")
	fmt.Println(s)
	// Output: Copy
}
