package invoker_test

import (
	"fmt"

	"github.jpl.nasa.gov/bdube/acqinvoker/invoker"
	"github.jpl.nasa.gov/bdube/acqinvoker/sim"
)

func Example() {
	cfg := sim.DefaultConfig()
	cfg.FrameRate = 0
	cam, _ := sim.New(cfg)
	cam.Connect()

	got := make(chan int, 4)
	inv := invoker.New(cam, func(f invoker.FrameInfo) {
		got <- f.Size
	})
	defer inv.Close()

	inv.SetAcquisitionStrategy(invoker.SoftwareTrigger)
	inv.SetFrameCountPerTrigger(2)
	inv.StartAcquisition()
	inv.SoftwareTrigger()
	fmt.Println(<-got, <-got)
	// Output: 307200 307200
}
