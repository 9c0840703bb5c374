package sim_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
	"github.jpl.nasa.gov/bdube/acqinvoker/sim"
)

func connected(t *testing.T, mut func(*sim.Config)) *sim.Camera {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.FrameRate = 0
	if mut != nil {
		mut(&cfg)
	}
	c, err := sim.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	return c
}

// events returns a sink which forwards every event, and the channel it
// forwards to
func events() (camera.EventSink, chan camera.StreamEvent) {
	ch := make(chan camera.StreamEvent, 64)
	return func(ev camera.StreamEvent, s camera.Stream) { ch <- ev }, ch
}

func waitFor(t *testing.T, ch chan camera.StreamEvent, want camera.StreamEvent) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v", want)
		}
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.PixelFormat = "Mono12Packed"
	if _, err := sim.New(cfg); err == nil {
		t.Error("expected error for unknown pixel format, got nil")
	}
	cfg = sim.DefaultConfig()
	cfg.Width = 0
	if _, err := sim.New(cfg); err == nil {
		t.Error("expected error for zero width, got nil")
	}
}

func TestConnectFailsOpenFailuresTimes(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.OpenFailures = 2
	c, err := sim.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.PayloadSize(); !errors.Is(err, sim.ErrNotConnected) {
		t.Errorf("expected %v got %v", sim.ErrNotConnected, err)
	}
	for k := 0; k < 2; k++ {
		if err := c.Connect(); !errors.Is(err, sim.ErrConnectTimeout) {
			t.Errorf("attempt %d: expected %v got %v", k, sim.ErrConnectTimeout, err)
		}
	}
	if err := c.Connect(); err != nil {
		t.Errorf("expected nil got %v", err)
	}
}

func TestPayloadFollowsPixelFormat(t *testing.T) {
	c := connected(t, func(cfg *sim.Config) {
		cfg.Width, cfg.Height = 32, 16
	})
	n, _ := c.PayloadSize()
	if n != 32*16 {
		t.Errorf("expected %d got %d", 32*16, n)
	}
	if err := c.SetString(camera.FeaturePixelFormat, "Mono16"); err != nil {
		t.Fatal(err)
	}
	n, _ = c.PayloadSize()
	if n != 32*16*2 {
		t.Errorf("expected %d got %d", 32*16*2, n)
	}
}

func TestFeatureValidation(t *testing.T) {
	c := connected(t, nil)
	var nf sim.ErrFeatureNotFound
	if _, err := c.GetString("ExposureTime"); !errors.As(err, &nf) {
		t.Errorf("expected ErrFeatureNotFound got %v", err)
	}
	var iv sim.ErrInvalidValue
	if err := c.SetString(camera.FeatureTriggerSource, "Line9"); !errors.As(err, &iv) {
		t.Errorf("expected ErrInvalidValue got %v", err)
	}
	if err := c.SetInteger(camera.FeatureAcquisitionBurstFrameCount, 0); !errors.As(err, &iv) {
		t.Errorf("expected ErrInvalidValue got %v", err)
	}
	if err := c.SetString(camera.FeatureDeviceModelName, "x"); !errors.Is(err, sim.ErrNotWritable) {
		t.Errorf("expected %v got %v", sim.ErrNotWritable, err)
	}
}

func TestBurstFeatureCanBeDisabled(t *testing.T) {
	c := connected(t, func(cfg *sim.Config) { cfg.BurstFrameCount = false })
	ok, err := c.IsFeatureAvailable(camera.FeatureAcquisitionBurstFrameCount)
	if err != nil || ok {
		t.Errorf("expected false, nil got %v, %v", ok, err)
	}
}

func TestWritesAreLoggedAndFailuresAreNot(t *testing.T) {
	c := connected(t, nil)
	boom := errors.New("boom")
	c.FailFeature(camera.FeatureTriggerSource, boom)
	c.SetString(camera.FeatureTriggerMode, camera.TriggerModeOn)
	if err := c.SetString(camera.FeatureTriggerSource, "Line1"); !errors.Is(err, boom) {
		t.Errorf("expected %v got %v", boom, err)
	}
	c.SetInteger(camera.FeatureAcquisitionBurstFrameCount, 3)
	exp := []sim.Write{
		{camera.FeatureTriggerMode, camera.TriggerModeOn},
		{camera.FeatureAcquisitionBurstFrameCount, "3"},
	}
	if diff := cmp.Diff(exp, c.Writes()); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestSizeFeaturesLockedDuringAcquisition(t *testing.T) {
	c := connected(t, nil)
	if err := c.StartAcquisition(); err != nil {
		t.Fatal(err)
	}
	defer c.StopAcquisition()
	if err := c.SetInteger(camera.FeatureWidth, 100); !errors.Is(err, sim.ErrNotWritable) {
		t.Errorf("expected %v got %v", sim.ErrNotWritable, err)
	}
}

func TestStreamFillsBuffersInOrder(t *testing.T) {
	c := connected(t, func(cfg *sim.Config) { cfg.Width, cfg.Height = 8, 8 })
	sink, ch := events()
	s, err := c.CreateStream(sink)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	waitFor(t, ch, camera.EventInit)
	s.PushBuffer(camera.NewBuffer(64))
	s.PushBuffer(camera.NewBuffer(64))
	c.StartAcquisition()
	defer c.StopAcquisition()

	c.Tick()
	waitFor(t, ch, camera.EventBufferDone)
	in, out := s.NBuffers()
	if in != 1 || out != 1 {
		t.Errorf("expected 1, 1 queued got %d, %d", in, out)
	}
	b := s.PopBuffer()
	data, err := b.ImageData()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 64 || data[0] != byte(b.FrameID) || data[1] != byte(b.FrameID+1) {
		t.Errorf("unexpected pattern %v for frame %d", data[:2], b.FrameID)
	}
	if b.Width != 8 || b.Height != 8 || b.PixelFormat != camera.Mono8 {
		t.Errorf("unexpected metadata %dx%d %v", b.Width, b.Height, b.PixelFormat)
	}
	if s.PopBuffer() != nil {
		t.Error("expected empty output queue")
	}
}

func TestUnderrunIsCounted(t *testing.T) {
	c := connected(t, nil)
	sink, ch := events()
	s, _ := c.CreateStream(sink)
	defer s.Close()
	waitFor(t, ch, camera.EventInit)
	c.StartAcquisition()
	defer c.StopAcquisition()
	c.Tick()
	ss := c.Stream()
	deadline := time.Now().Add(2 * time.Second)
	for ss.Underruns() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ss.Underruns() != 1 {
		t.Errorf("expected 1 underrun got %d", ss.Underruns())
	}
}

func TestCorruptAndUndersizedFrames(t *testing.T) {
	c := connected(t, func(cfg *sim.Config) { cfg.Width, cfg.Height = 8, 8 })
	sink, ch := events()
	s, _ := c.CreateStream(sink)
	defer s.Close()
	s.PushBuffer(camera.NewBuffer(64))
	s.PushBuffer(camera.NewBuffer(10))
	c.StartAcquisition()
	defer c.StopAcquisition()

	c.CorruptNextFrames(1)
	c.Tick()
	waitFor(t, ch, camera.EventBufferDone)
	if st := s.PopBuffer().Status(); st != camera.BufferMissingPackets {
		t.Errorf("expected %v got %v", camera.BufferMissingPackets, st)
	}
	c.Tick()
	waitFor(t, ch, camera.EventBufferDone)
	if st := s.PopBuffer().Status(); st != camera.BufferSizeMismatch {
		t.Errorf("expected %v got %v", camera.BufferSizeMismatch, st)
	}
}

func TestSoftwareTriggerEmitsBurst(t *testing.T) {
	c := connected(t, nil)
	sink, ch := events()
	s, _ := c.CreateStream(sink)
	defer s.Close()
	n, _ := c.PayloadSize()
	for k := 0; k < 4; k++ {
		s.PushBuffer(camera.NewBuffer(n))
	}
	c.SetString(camera.FeatureTriggerSelector, camera.TriggerFrameBurstStart)
	c.SetString(camera.FeatureTriggerMode, camera.TriggerModeOn)
	c.SetString(camera.FeatureTriggerSource, camera.TriggerSourceSoftware)
	c.SetInteger(camera.FeatureAcquisitionBurstFrameCount, 3)

	if err := c.SoftwareTrigger(); !errors.Is(err, sim.ErrNotAcquiring) {
		t.Errorf("expected %v got %v", sim.ErrNotAcquiring, err)
	}
	c.StartAcquisition()
	defer c.StopAcquisition()
	if c.Tick() {
		t.Error("expected Tick to do nothing with triggers on")
	}
	if err := c.SoftwareTrigger(); err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 3; k++ {
		waitFor(t, ch, camera.EventBufferDone)
	}
	if _, out := s.NBuffers(); out != 3 {
		t.Errorf("expected 3 completed buffers got %d", out)
	}
}

func TestFireLineOnlyOnArmedSource(t *testing.T) {
	c := connected(t, nil)
	sink, _ := events()
	s, _ := c.CreateStream(sink)
	defer s.Close()
	c.SetString(camera.FeatureTriggerSelector, camera.TriggerFrameBurstStart)
	c.SetString(camera.FeatureTriggerMode, camera.TriggerModeOn)
	c.SetString(camera.FeatureTriggerSource, "Line1")
	c.StartAcquisition()
	defer c.StopAcquisition()
	if n := c.FireLine("Line0"); n != 0 {
		t.Errorf("expected 0 frames on Line0 got %d", n)
	}
	if n := c.FireLine("Line1"); n != 1 {
		t.Errorf("expected 1 frame on Line1 got %d", n)
	}
	if err := c.SoftwareTrigger(); !errors.Is(err, sim.ErrTriggerNotArmed) {
		t.Errorf("expected %v got %v", sim.ErrTriggerNotArmed, err)
	}
}

func TestFreeRunProducesFrames(t *testing.T) {
	c := connected(t, func(cfg *sim.Config) {
		cfg.Width, cfg.Height = 4, 4
		cfg.FrameRate = 200
	})
	sink, ch := events()
	s, _ := c.CreateStream(sink)
	defer s.Close()
	for k := 0; k < 2; k++ {
		s.PushBuffer(camera.NewBuffer(16))
	}
	c.StartAcquisition()
	waitFor(t, ch, camera.EventBufferDone)
	if err := c.StopAcquisition(); err != nil {
		t.Fatal(err)
	}
	if c.IsAcquiring() {
		t.Error("expected acquisition stopped")
	}
}

func TestStopThreadDeletesBuffersAndCloseDetaches(t *testing.T) {
	c := connected(t, nil)
	sink, ch := events()
	s, _ := c.CreateStream(sink)
	s.PushBuffer(camera.NewBuffer(1))
	if err := s.StopThread(true); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, camera.EventExit)
	if in, out := s.NBuffers(); in != 0 || out != 0 {
		t.Errorf("expected empty queues got %d, %d", in, out)
	}
	if err := s.StartThread(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, camera.EventInit)
	s.Close()
	if c.Stream() != nil {
		t.Error("expected closed stream to be detached")
	}
	if err := s.StartThread(); !errors.Is(err, sim.ErrStreamClosed) {
		t.Errorf("expected %v got %v", sim.ErrStreamClosed, err)
	}
	if c.StreamsCreated() != 1 {
		t.Errorf("expected 1 stream created got %d", c.StreamsCreated())
	}
}
