/*
Package sim provides a simulated GenICam camera.

The simulated device implements camera.Camera with an in-memory feature
table, free-run frame generation paced at a configurable rate, software and
line triggers with burst counts, and a Stream with real input/output queues
and a background goroutine.  It also records every feature write and can be
told to fail.
*/
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
	"github.jpl.nasa.gov/bdube/acqinvoker/util"
)

var (
	// ErrNotConnected is returned by every call made before Connect
	ErrNotConnected = errors.New("sim: camera not connected")

	// ErrConnectTimeout is returned by Connect while simulated connection
	// failures remain
	ErrConnectTimeout = errors.New("sim: connection timeout")

	// ErrNotWritable is returned when writing a feature locked by a running
	// acquisition
	ErrNotWritable = errors.New("sim: feature not writable during acquisition")

	// ErrNotAcquiring is returned by SoftwareTrigger outside an acquisition
	ErrNotAcquiring = errors.New("sim: acquisition not running")

	// ErrTriggerNotArmed is returned by SoftwareTrigger when the trigger
	// is not configured for the software source
	ErrTriggerNotArmed = errors.New("sim: software trigger not armed")

	// ErrNotSupported is returned for capabilities the configuration disables
	ErrNotSupported = errors.New("sim: not supported by this camera")
)

// ErrFeatureNotFound is generated when a feature is not in the Features map
type ErrFeatureNotFound struct {
	// Feature is the specific feature not found
	Feature string
}

// Error satisfies the error interface
func (e ErrFeatureNotFound) Error() string {
	return fmt.Sprintf("sim: feature %s not found, see sim#Features for known features", e.Feature)
}

// ErrInvalidValue is generated when a value is outside a feature's range or
// enumeration
type ErrInvalidValue struct {
	Feature string
	Value   string
}

// Error satisfies the error interface
func (e ErrInvalidValue) Error() string {
	return fmt.Sprintf("sim: %q is not a valid value for %s", e.Value, e.Feature)
}

// Features maps the simulated features to their types
var Features = map[string]string{
	camera.FeatureAcquisitionMode:            "enum",
	camera.FeatureTriggerMode:                "enum",
	camera.FeatureTriggerSelector:            "enum",
	camera.FeatureTriggerSource:              "enum",
	camera.FeaturePixelFormat:                "enum",
	camera.FeatureDeviceModelName:            "string",
	camera.FeatureDeviceSerialNumber:         "string",
	camera.FeatureWidth:                      "int",
	camera.FeatureHeight:                     "int",
	camera.FeatureAcquisitionBurstFrameCount: "int",
}

// lockedDuringAcquisition are the features that change the payload size
var lockedDuringAcquisition = map[string]bool{
	camera.FeatureWidth:       true,
	camera.FeatureHeight:      true,
	camera.FeaturePixelFormat: true,
}

// Config describes the simulated device
type Config struct {
	// Model is reported as DeviceModelName
	Model string `koanf:"Model" yaml:"Model"`

	// Serial is reported as DeviceSerialNumber
	Serial string `koanf:"Serial" yaml:"Serial"`

	// Width is the initial frame width in pixels
	Width int `koanf:"Width" yaml:"Width"`

	// Height is the initial frame height in pixels
	Height int `koanf:"Height" yaml:"Height"`

	// PixelFormat is the initial PFNC pixel format name, e.g. Mono8
	PixelFormat string `koanf:"PixelFormat" yaml:"PixelFormat"`

	// FrameRate is the free-run rate in Hz.  Zero disables free-run
	// generation; frames then only come from Tick and triggers.
	FrameRate float64 `koanf:"FrameRate" yaml:"FrameRate"`

	// TriggerSources are the values TriggerSource accepts
	TriggerSources []string `koanf:"TriggerSources" yaml:"TriggerSources"`

	// InUseTriggerSources are sources reported as already claimed
	InUseTriggerSources []string `koanf:"InUseTriggerSources" yaml:"InUseTriggerSources"`

	// Triggers are the values TriggerSelector accepts
	Triggers []string `koanf:"Triggers" yaml:"Triggers"`

	// SoftwareTrigger enables the software trigger command
	SoftwareTrigger bool `koanf:"SoftwareTrigger" yaml:"SoftwareTrigger"`

	// BurstFrameCount exposes AcquisitionBurstFrameCount
	BurstFrameCount bool `koanf:"BurstFrameCount" yaml:"BurstFrameCount"`

	// OpenFailures is how many Connect calls time out before one succeeds
	OpenFailures int `koanf:"OpenFailures" yaml:"OpenFailures"`
}

// DefaultConfig is a 640x480 Mono8 camera with software and three line
// triggers, free-running at 10 Hz
func DefaultConfig() Config {
	return Config{
		Model:           "SimCam GX",
		Serial:          "SIM-0001",
		Width:           640,
		Height:          480,
		PixelFormat:     camera.Mono8.String(),
		FrameRate:       10,
		TriggerSources:  []string{camera.TriggerSourceSoftware, "Line0", "Line1", "Line2"},
		Triggers:        []string{camera.TriggerFrameStart, camera.TriggerFrameBurstStart},
		SoftwareTrigger: true,
		BurstFrameCount: true,
	}
}

// Write is one successful feature write
type Write struct {
	Feature string
	Value   string
}

// Camera is a simulated camera
type Camera struct {
	mu sync.Mutex

	cfg  Config
	strs map[string]string
	ints map[string]int64

	connected    bool
	openFailures int
	acquiring    bool

	stream         *Stream
	streamsCreated int
	frameID        uint64

	// free-run generator
	cancel context.CancelFunc
	done   chan struct{}

	writes       []Write
	failFeatures map[string]error
	failPayload  error
	failStart    error
	corruptNext  int

	log *slog.Logger
}

// New validates cfg and returns a disconnected camera
func New(cfg Config) (*Camera, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("sim: invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	pf, err := camera.ParsePixelFormat(cfg.PixelFormat)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	if cfg.FrameRate < 0 {
		return nil, fmt.Errorf("sim: invalid frame rate %v", cfg.FrameRate)
	}
	cfg.TriggerSources = util.UniqueString(cfg.TriggerSources)
	cfg.Triggers = util.UniqueString(cfg.Triggers)
	c := &Camera{
		cfg: cfg,
		strs: map[string]string{
			camera.FeatureAcquisitionMode:    camera.AcquisitionModeSingleFrame,
			camera.FeatureTriggerMode:        camera.TriggerModeOff,
			camera.FeaturePixelFormat:        pf.String(),
			camera.FeatureDeviceModelName:    cfg.Model,
			camera.FeatureDeviceSerialNumber: cfg.Serial,
		},
		ints: map[string]int64{
			camera.FeatureWidth:                      int64(cfg.Width),
			camera.FeatureHeight:                     int64(cfg.Height),
			camera.FeatureAcquisitionBurstFrameCount: 1,
		},
		openFailures: cfg.OpenFailures,
		failFeatures: map[string]error{},
		log:          slog.Default().With("component", "sim"),
	}
	if len(cfg.Triggers) > 0 {
		c.strs[camera.FeatureTriggerSelector] = cfg.Triggers[0]
	}
	if len(cfg.TriggerSources) > 0 {
		c.strs[camera.FeatureTriggerSource] = cfg.TriggerSources[0]
	}
	return c, nil
}

// SetLogger replaces the logger
func (c *Camera) SetLogger(l *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = l
}

// Connect opens the simulated link.  It returns ErrConnectTimeout as long
// as Config.OpenFailures attempts have not been used up.
func (c *Camera) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openFailures > 0 {
		c.openFailures--
		return ErrConnectTimeout
	}
	c.connected = true
	c.log.Info("connected", "model", c.cfg.Model, "serial", c.cfg.Serial)
	return nil
}

// Disconnect stops any acquisition, closes the stream and drops the link
func (c *Camera) Disconnect() error {
	if err := c.StopAcquisition(); err != nil && !errors.Is(err, ErrNotConnected) {
		return err
	}
	c.mu.Lock()
	s := c.stream
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

// FailFeature makes every write to feature return err.  A nil err clears it.
func (c *Camera) FailFeature(feature string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failFeatures, feature)
		return
	}
	c.failFeatures[feature] = err
}

// FailPayload makes PayloadSize return err.  A nil err clears it.
func (c *Camera) FailPayload(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failPayload = err
}

// FailStart makes StartAcquisition return err.  A nil err clears it.
func (c *Camera) FailStart(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failStart = err
}

// CorruptNextFrames marks the next n frames as having lost packets
func (c *Camera) CorruptNextFrames(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corruptNext = n
}

// Writes returns the successful feature writes, oldest first
func (c *Camera) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Write, len(c.writes))
	copy(out, c.writes)
	return out
}

// ClearWrites empties the write log
func (c *Camera) ClearWrites() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = nil
}

// StreamsCreated counts CreateStream calls
func (c *Camera) StreamsCreated() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamsCreated
}

// Stream returns the open stream, or nil
func (c *Camera) Stream() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// IsAcquiring reports the device's acquisition state
func (c *Camera) IsAcquiring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquiring
}

func (c *Camera) check() error {
	if !c.connected {
		return ErrNotConnected
	}
	return nil
}

func (c *Camera) pixelFormat() camera.PixelFormat {
	pf, _ := camera.ParsePixelFormat(c.strs[camera.FeaturePixelFormat])
	return pf
}

func (c *Camera) payloadLocked() int {
	return int(c.ints[camera.FeatureWidth]) * int(c.ints[camera.FeatureHeight]) * c.pixelFormat().BytesPerPixel()
}

// PayloadSize is width * height * bytes per pixel
func (c *Camera) PayloadSize() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return 0, err
	}
	if c.failPayload != nil {
		return 0, c.failPayload
	}
	return c.payloadLocked(), nil
}

// GetString gets a string or enumeration feature
func (c *Camera) GetString(feature string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return "", err
	}
	typ, ok := Features[feature]
	if !ok || (typ != "enum" && typ != "string") {
		return "", ErrFeatureNotFound{feature}
	}
	return c.strs[feature], nil
}

// SetString sets a string or enumeration feature
func (c *Camera) SetString(feature, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	typ, ok := Features[feature]
	if !ok || (typ != "enum" && typ != "string") {
		return ErrFeatureNotFound{feature}
	}
	if typ == "string" {
		return ErrNotWritable
	}
	if err := c.failFeatures[feature]; err != nil {
		return err
	}
	if c.acquiring && lockedDuringAcquisition[feature] {
		return ErrNotWritable
	}
	if !util.ContainsString(c.enumEntries(feature), value) {
		return ErrInvalidValue{feature, value}
	}
	c.strs[feature] = value
	c.writes = append(c.writes, Write{feature, value})
	return nil
}

func (c *Camera) enumEntries(feature string) []string {
	switch feature {
	case camera.FeatureAcquisitionMode:
		return []string{camera.AcquisitionModeContinuous, camera.AcquisitionModeSingleFrame, camera.AcquisitionModeMultiFrame}
	case camera.FeatureTriggerMode:
		return []string{camera.TriggerModeOn, camera.TriggerModeOff}
	case camera.FeatureTriggerSelector:
		return c.cfg.Triggers
	case camera.FeatureTriggerSource:
		return c.cfg.TriggerSources
	case camera.FeaturePixelFormat:
		return []string{camera.Mono8.String(), camera.Mono16.String(), camera.BayerRG8.String(), camera.RGB8.String()}
	}
	return nil
}

// GetInteger gets an integer feature
func (c *Camera) GetInteger(feature string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return 0, err
	}
	if Features[feature] != "int" || !c.availableLocked(feature) {
		return 0, ErrFeatureNotFound{feature}
	}
	return c.ints[feature], nil
}

// SetInteger sets an integer feature
func (c *Camera) SetInteger(feature string, value int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if Features[feature] != "int" || !c.availableLocked(feature) {
		return ErrFeatureNotFound{feature}
	}
	if err := c.failFeatures[feature]; err != nil {
		return err
	}
	if c.acquiring && lockedDuringAcquisition[feature] {
		return ErrNotWritable
	}
	max := int64(1 << 16)
	if feature == camera.FeatureAcquisitionBurstFrameCount {
		max = 255
	}
	if value < 1 || value > max {
		return ErrInvalidValue{feature, strconv.FormatInt(value, 10)}
	}
	c.ints[feature] = value
	c.writes = append(c.writes, Write{feature, strconv.FormatInt(value, 10)})
	return nil
}

func (c *Camera) availableLocked(feature string) bool {
	if _, ok := Features[feature]; !ok {
		return false
	}
	if feature == camera.FeatureAcquisitionBurstFrameCount {
		return c.cfg.BurstFrameCount
	}
	return true
}

// IsFeatureAvailable is true for features in Features, except the burst
// frame count when Config.BurstFrameCount is false
func (c *Camera) IsFeatureAvailable(feature string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return false, err
	}
	return c.availableLocked(feature), nil
}

// AvailableTriggerSources lists Config.TriggerSources
func (c *Camera) AvailableTriggerSources() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return nil, err
	}
	return append([]string(nil), c.cfg.TriggerSources...), nil
}

// InUseTriggerSources lists Config.InUseTriggerSources
func (c *Camera) InUseTriggerSources() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return nil, err
	}
	return append([]string(nil), c.cfg.InUseTriggerSources...), nil
}

// AvailableTriggers lists Config.Triggers
func (c *Camera) AvailableTriggers() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return nil, err
	}
	return append([]string(nil), c.cfg.Triggers...), nil
}

// IsSoftwareTriggerSupported returns Config.SoftwareTrigger
func (c *Camera) IsSoftwareTriggerSupported() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return false, err
	}
	return c.cfg.SoftwareTrigger, nil
}

// armedFor is true if a burst trigger on source would fire
func (c *Camera) armedFor(source string) bool {
	return c.acquiring &&
		c.strs[camera.FeatureTriggerMode] == camera.TriggerModeOn &&
		c.strs[camera.FeatureTriggerSelector] == camera.TriggerFrameBurstStart &&
		c.strs[camera.FeatureTriggerSource] == source
}

// SoftwareTrigger emits one burst when the trigger is armed for the
// software source
func (c *Camera) SoftwareTrigger() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if !c.cfg.SoftwareTrigger {
		return ErrNotSupported
	}
	if !c.acquiring {
		return ErrNotAcquiring
	}
	if !c.armedFor(camera.TriggerSourceSoftware) {
		return ErrTriggerNotArmed
	}
	c.emitLocked(int(c.ints[camera.FeatureAcquisitionBurstFrameCount]))
	return nil
}

// FireLine simulates an edge on an input line.  It returns the number of
// frames the edge started, zero if the trigger is not armed for line.
func (c *Camera) FireLine(line string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || !c.armedFor(line) {
		return 0
	}
	n := int(c.ints[camera.FeatureAcquisitionBurstFrameCount])
	c.emitLocked(n)
	return n
}

// Tick emits one free-run frame if the camera is acquiring with triggers
// off.  It reports whether a frame was emitted.
func (c *Camera) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || !c.acquiring || c.strs[camera.FeatureTriggerMode] != camera.TriggerModeOff {
		return false
	}
	c.emitLocked(1)
	return true
}

// CreateStream opens a stream reporting to sink and starts its thread
func (c *Camera) CreateStream(sink camera.EventSink) (camera.Stream, error) {
	c.mu.Lock()
	if err := c.check(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	s := newStream(c, sink)
	c.stream = s
	c.streamsCreated++
	c.mu.Unlock()
	if err := s.StartThread(); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Camera) detach(s *Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == s {
		c.stream = nil
	}
}

// StartAcquisition starts the device and, when Config.FrameRate is
// positive, the free-run generator
func (c *Camera) StartAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if c.failStart != nil {
		return c.failStart
	}
	if c.acquiring {
		return nil
	}
	c.acquiring = true
	if c.cfg.FrameRate > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.done = make(chan struct{})
		lim := rate.NewLimiter(rate.Limit(c.cfg.FrameRate), 1)
		go c.freeRun(ctx, lim, c.done)
	}
	c.log.Debug("acquisition started", "trigger_mode", c.strs[camera.FeatureTriggerMode])
	return nil
}

// StopAcquisition stops the device and waits for the generator to exit
func (c *Camera) StopAcquisition() error {
	c.mu.Lock()
	if err := c.check(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.acquiring = false
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	c.log.Debug("acquisition stopped")
	return nil
}

func (c *Camera) freeRun(ctx context.Context, lim *rate.Limiter, done chan struct{}) {
	defer close(done)
	for {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		c.mu.Lock()
		if c.acquiring && c.strs[camera.FeatureTriggerMode] == camera.TriggerModeOff {
			c.emitLocked(1)
		}
		c.mu.Unlock()
	}
}

// emitLocked hands n frames with the current image settings to the stream
func (c *Camera) emitLocked(n int) {
	if c.stream == nil {
		return
	}
	for k := 0; k < n; k++ {
		c.frameID++
		f := frame{
			id:      c.frameID,
			width:   int(c.ints[camera.FeatureWidth]),
			height:  int(c.ints[camera.FeatureHeight]),
			format:  c.pixelFormat(),
			payload: c.payloadLocked(),
			ts:      time.Now(),
		}
		if c.corruptNext > 0 {
			c.corruptNext--
			f.corrupt = true
		}
		c.stream.submit(f)
	}
}
