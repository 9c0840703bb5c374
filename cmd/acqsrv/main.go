package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-chi/chi"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"

	"github.jpl.nasa.gov/bdube/acqinvoker/generichttp"
	"github.jpl.nasa.gov/bdube/acqinvoker/generichttp/camera"
	"github.jpl.nasa.gov/bdube/acqinvoker/invoker"
	"github.jpl.nasa.gov/bdube/acqinvoker/server/middleware/locker"
	"github.jpl.nasa.gov/bdube/acqinvoker/sim"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "acqsrv.yml"

	// EnvPrefix marks environment variables that override the config file
	EnvPrefix = "ACQSRV_"
	k         = koanf.New(".")
)

type config struct {
	// Addr is the listen address
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Root is the URL the camera routes are mounted under
	Root string `koanf:"Root" yaml:"Root"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `koanf:"LogLevel" yaml:"LogLevel"`

	// ConnectTimeout bounds the retries when opening the camera
	ConnectTimeout time.Duration `koanf:"ConnectTimeout" yaml:"ConnectTimeout"`

	// StartOnBoot starts acquisition once the invoker is configured
	StartOnBoot bool `koanf:"StartOnBoot" yaml:"StartOnBoot"`

	Camera  sim.Config     `koanf:"Camera" yaml:"Camera"`
	Invoker invoker.Config `koanf:"Invoker" yaml:"Invoker"`
}

func defaultConfig() config {
	return config{
		Addr:           ":8000",
		Root:           "/camera",
		LogLevel:       "info",
		ConnectTimeout: 5 * time.Second,
		Camera:         sim.DefaultConfig(),
		Invoker:        invoker.DefaultConfig(),
	}
}

// envKey maps ACQSRV_CAMERA_FRAMERATE to Camera.FrameRate
func envKey(s string) string {
	key := strings.Replace(strings.TrimPrefix(s, EnvPrefix), "_", ".", -1)
	for _, known := range k.Keys() {
		if strings.EqualFold(known, key) {
			return known
		}
	}
	return key
}

func setupconfig() {
	k.Load(structs.Provider(defaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		log.Fatalf("error loading environment: %v", err)
	}
}

func loadconfig() config {
	c := config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	return c
}

func root() {
	str := `acqsrv runs the acquisition of a GenICam camera and exposes it over HTTP.
Strategies, buffer pools and triggers are controlled with simple JSON
requests, and the latest frame can be fetched as JPEG, PNG or FITS.

Usage:
	acqsrv <command>

Commands:
	run
	snap [file]
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `acqsrv is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  Keys are not case-sensitive.
The command mkconf generates the configuration file with the default values.
Any key may be overridden by an environment variable prefixed with ACQSRV_, with
nested keys separated by underscores, e.g. ACQSRV_CAMERA_FRAMERATE=25.

The Invoker section is applied in order: BufferCount, BufferStrategy,
HardwareTriggerSource, AcquisitionStrategy, FrameCountPerTrigger.  A
HardwareTrigger strategy needs a HardwareTriggerSource.

While the server is locked (POST /lock {"bool": true}) every request that
changes state is refused with 423; reads still work.

snap configures a software trigger, captures one frame and writes it to a FITS
file, snap.fits by default.`
	fmt.Println(str)
}

func mkconf() {
	c := loadconfig()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := loadconfig()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("acqsrv version %v\n", Version)
}

func setuplogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		log.Printf("unknown log level %q, using info", level)
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// connect opens the camera, retrying timeouts with exponential backoff until
// timeout has elapsed
func connect(cfg config) (*sim.Camera, error) {
	cam, err := sim.New(cfg.Camera)
	if err != nil {
		return nil, err
	}
	op := func() error {
		err := cam.Connect()
		if err != nil && err != sim.ErrConnectTimeout {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Println("camera connection timed out, retrying")
		}
		return err
	}
	err = backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      cfg.ConnectTimeout,
		Clock:               backoff.SystemClock})
	if err != nil {
		return nil, fmt.Errorf("connecting to camera: %w", err)
	}
	return cam, nil
}

// run serves cfg until interrupted.  Errors are returned so the deferred
// teardown of the invoker and camera always runs.
func run(cfg config) error {
	setuplogging(cfg.LogLevel)

	cam, err := connect(cfg)
	if err != nil {
		return err
	}
	defer cam.Disconnect()
	log.Printf("connected to %s %s\n", cfg.Camera.Model, cfg.Camera.Serial)

	mon := camera.NewMonitor()
	defer mon.Close()
	inv := invoker.New(cam, mon.Callback)
	defer inv.Close()
	if err := inv.Configure(cfg.Invoker); err != nil {
		return fmt.Errorf("configuring invoker: %w", err)
	}
	if cfg.StartOnBoot {
		if err := inv.StartAcquisition(); err != nil {
			return fmt.Errorf("starting acquisition: %w", err)
		}
	}

	w := camera.NewHTTPInvoker(inv, cam, mon)
	lock := locker.New()
	locker.Inject(w, lock)

	// clean up the submux string
	hndlrS := generichttp.SubMuxSanitize(cfg.Root)
	root := chi.NewRouter()
	mux := chi.NewRouter()
	mux.Use(lock.Check)
	root.Mount(hndlrS, mux)
	w.RT().Bind(mux)

	srv := &http.Server{Addr: cfg.Addr, Handler: root}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	log.Println("now listening for requests at ", cfg.Addr+hndlrS)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	log.Println("shutting down")
	return nil
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		if err := run(loadconfig()); err != nil {
			log.Fatal(err)
		}
		return
	case "snap":
		fn := "snap.fits"
		if len(args) > 2 {
			fn = args[2]
		}
		if err := snap(loadconfig(), fn); err != nil {
			log.Fatal(err)
		}
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
