package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theckman/yacspin"

	"github.jpl.nasa.gov/bdube/acqinvoker/generichttp/camera"
	"github.jpl.nasa.gov/bdube/acqinvoker/invoker"
)

// snap captures one software-triggered frame and writes it to fn as FITS
func snap(cfg config, fn string) error {
	setuplogging("warn")
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " ",
		Message:           "connecting to camera",
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		return err
	}
	spinner.Start()
	fail := func(err error) error {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		return err
	}

	cam, err := connect(cfg)
	if err != nil {
		return fail(err)
	}
	defer cam.Disconnect()

	frames := make(chan invoker.FrameInfo, 1)
	inv := invoker.New(cam, func(f invoker.FrameInfo) {
		if f.Err != nil {
			return
		}
		select {
		case frames <- f:
		default:
			f.Release()
		}
	})
	defer inv.Close()

	spinner.Message("configuring trigger")
	if err := inv.SetBufferStrategy(invoker.Copy); err != nil {
		return fail(err)
	}
	if err := inv.SetAcquisitionStrategy(invoker.SoftwareTrigger); err != nil {
		return fail(err)
	}
	if err := inv.StartAcquisition(); err != nil {
		return fail(err)
	}
	spinner.Message("waiting for frame")
	if err := inv.SoftwareTrigger(); err != nil {
		return fail(err)
	}
	var f invoker.FrameInfo
	select {
	case f = <-frames:
	case <-time.After(5 * time.Second):
		return fail(errors.New("no frame within 5s of the trigger"))
	}
	defer f.Release()

	spinner.Message("writing " + fn)
	out, err := os.Create(fn)
	if err != nil {
		return fail(err)
	}
	defer out.Close()
	if err := camera.WriteFits(out, camera.FrameCards(f), f); err != nil {
		return fail(err)
	}
	spinner.StopMessage(fmt.Sprintf("frame %d (%dx%d %v) written to %s", f.FrameID, f.Width, f.Height, f.PixelFormat, fn))
	return spinner.Stop()
}
