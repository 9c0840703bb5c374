package main

import (
	"errors"
	"testing"
	"time"

	"github.com/knadh/koanf/providers/structs"

	"github.jpl.nasa.gov/bdube/acqinvoker/invoker"
	"github.jpl.nasa.gov/bdube/acqinvoker/sim"
)

func TestEnvKeyMatchesConfigCase(t *testing.T) {
	k.Load(structs.Provider(defaultConfig(), "koanf"), nil)
	cases := map[string]string{
		"ACQSRV_ADDR":                        "Addr",
		"ACQSRV_CAMERA_FRAMERATE":            "Camera.FrameRate",
		"ACQSRV_INVOKER_BUFFERCOUNT":         "Invoker.BufferCount",
		"ACQSRV_INVOKER_ACQUISITIONSTRATEGY": "Invoker.AcquisitionStrategy",
	}
	for in, exp := range cases {
		if got := envKey(in); got != exp {
			t.Errorf("%s: expected %s got %s", in, exp, got)
		}
	}
}

func TestConnectRetriesTimeouts(t *testing.T) {
	cfg := defaultConfig()
	cfg.Camera.OpenFailures = 2
	cfg.ConnectTimeout = 2 * time.Second
	cam, err := connect(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cam.PayloadSize(); err != nil {
		t.Errorf("expected a connected camera got %v", err)
	}
}

func TestConnectGivesUp(t *testing.T) {
	cfg := defaultConfig()
	cfg.Camera.OpenFailures = 1000
	cfg.ConnectTimeout = 50 * time.Millisecond
	if _, err := connect(cfg); !errors.Is(err, sim.ErrConnectTimeout) {
		t.Errorf("expected %v got %v", sim.ErrConnectTimeout, err)
	}
}

func TestRunReturnsSetupErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Camera.OpenFailures = 1000
	cfg.ConnectTimeout = 20 * time.Millisecond
	if err := run(cfg); !errors.Is(err, sim.ErrConnectTimeout) {
		t.Errorf("expected %v got %v", sim.ErrConnectTimeout, err)
	}

	cfg = defaultConfig()
	cfg.Invoker.AcquisitionStrategy = "Sometimes"
	if err := run(cfg); !errors.Is(err, invoker.ErrUnknownStrategy) {
		t.Errorf("expected %v got %v", invoker.ErrUnknownStrategy, err)
	}
}
