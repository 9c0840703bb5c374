// Package camera provides a generic HTTP interface to a camera's acquisition invoker
package camera

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/astrogo/fitsio"
	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.jpl.nasa.gov/bdube/acqinvoker/camera"
	"github.jpl.nasa.gov/bdube/acqinvoker/generichttp"
	"github.jpl.nasa.gov/bdube/acqinvoker/invoker"
	"github.jpl.nasa.gov/bdube/acqinvoker/server"
)

// MetadataMaker can produce an array of FITS cards
type MetadataMaker interface {
	// CollectHeaderMetadata produces an array of FITS cards
	CollectHeaderMetadata() []fitsio.Card
}

// HTTPInvoker wraps an invoker, its camera and a monitor in an HTTP route table
type HTTPInvoker struct {
	Inv *invoker.Invoker
	Cam camera.Camera
	Mon *Monitor

	// RouteTable maps method-paths to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPInvoker returns a new HTTP wrapper.  mon should be the callback of
// inv; without it GET /frame is not bound.
func NewHTTPInvoker(inv *invoker.Invoker, cam camera.Camera, mon *Monitor) HTTPInvoker {
	h := HTTPInvoker{Inv: inv, Cam: cam, Mon: mon}
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/acquisition"}:                    generichttp.GetBool(h.acquiring),
		{Method: http.MethodPost, Path: "/acquisition"}:                   generichttp.SetBool(h.setAcquiring),
		{Method: http.MethodGet, Path: "/acquisition-strategy"}:           generichttp.GetString(h.acquisitionStrategy),
		{Method: http.MethodPost, Path: "/acquisition-strategy"}:          generichttp.SetString(h.setAcquisitionStrategy),
		{Method: http.MethodGet, Path: "/acquisition-strategy/supported"}: h.Supported,
		{Method: http.MethodGet, Path: "/buffer-strategy"}:                generichttp.GetString(h.bufferStrategy),
		{Method: http.MethodPost, Path: "/buffer-strategy"}:               generichttp.SetString(h.setBufferStrategy),
		{Method: http.MethodGet, Path: "/buffer-count"}:                   generichttp.GetInt(h.bufferCount),
		{Method: http.MethodPost, Path: "/buffer-count"}:                  generichttp.SetInt(h.setBufferCount),
		{Method: http.MethodGet, Path: "/hardware-trigger-source"}:        generichttp.GetString(h.hardwareTriggerSource),
		{Method: http.MethodPost, Path: "/hardware-trigger-source"}:       generichttp.SetString(h.setHardwareTriggerSource),
		{Method: http.MethodGet, Path: "/frame-count-per-trigger"}:        generichttp.GetInt(h.frameCount),
		{Method: http.MethodPost, Path: "/frame-count-per-trigger"}:       generichttp.SetInt(h.setFrameCount),
		{Method: http.MethodPost, Path: "/software-trigger"}:              generichttp.Do(h.softwareTrigger),
		{Method: http.MethodPost, Path: "/stream/reset"}:                  generichttp.Do(h.resetStream),
		{Method: http.MethodGet, Path: "/stats"}:                          h.Stats,
	}
	if cam != nil {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/feature/{feature}"}] = h.Feature
	}
	if mon != nil {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/frame"}] = h.Frame
	}
	h.RouteTable = rt
	return h
}

// RT satisfies the generichttp.HTTPer interface
func (h HTTPInvoker) RT() generichttp.RouteTable {
	return h.RouteTable
}

// status maps invoker errors to HTTP status codes.  Camera failures stay 500.
func status(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, invoker.ErrInvalidBufferCount),
		errors.Is(err, invoker.ErrInvalidFrameCount),
		errors.Is(err, invoker.ErrUnknownStrategy):
		return generichttp.WithStatus(err, http.StatusBadRequest)
	case errors.Is(err, invoker.ErrAlreadyAcquiring),
		errors.Is(err, invoker.ErrNotAcquiring),
		errors.Is(err, invoker.ErrNoStream),
		errors.Is(err, invoker.ErrWrongStrategy),
		errors.Is(err, invoker.ErrNoHardwareTriggerSource):
		return generichttp.WithStatus(err, http.StatusConflict)
	case errors.Is(err, invoker.ErrBurstCountUnavailable):
		return generichttp.WithStatus(err, http.StatusNotImplemented)
	}
	return err
}

func (h HTTPInvoker) acquiring() (bool, error) {
	return h.Inv.IsInAcquisition(), nil
}

// setAcquiring is idempotent over HTTP: asking for the current state is not
// an error
func (h HTTPInvoker) setAcquiring(b bool) error {
	if b == h.Inv.IsInAcquisition() {
		return nil
	}
	if b {
		return status(h.Inv.StartAcquisition())
	}
	return status(h.Inv.StopAcquisition())
}

func (h HTTPInvoker) acquisitionStrategy() (string, error) {
	return h.Inv.AcquisitionStrategy().String(), nil
}

func (h HTTPInvoker) setAcquisitionStrategy(s string) error {
	strat, err := invoker.ParseAcquisitionStrategy(s)
	if err != nil {
		return status(err)
	}
	return status(h.Inv.SetAcquisitionStrategy(strat))
}

func (h HTTPInvoker) bufferStrategy() (string, error) {
	return h.Inv.BufferStrategy().String(), nil
}

func (h HTTPInvoker) setBufferStrategy(s string) error {
	strat, err := invoker.ParseBufferStrategy(s)
	if err != nil {
		return status(err)
	}
	return status(h.Inv.SetBufferStrategy(strat))
}

func (h HTTPInvoker) bufferCount() (int, error) {
	return h.Inv.BufferCount(), nil
}

func (h HTTPInvoker) setBufferCount(n int) error {
	return status(h.Inv.SetBufferCount(n))
}

func (h HTTPInvoker) hardwareTriggerSource() (string, error) {
	return h.Inv.HardwareTriggerSource(), nil
}

func (h HTTPInvoker) setHardwareTriggerSource(s string) error {
	h.Inv.SetHardwareTriggerSource(s)
	return nil
}

func (h HTTPInvoker) frameCount() (int, error) {
	return h.Inv.FrameCountPerTrigger(), nil
}

func (h HTTPInvoker) setFrameCount(n int) error {
	return status(h.Inv.SetFrameCountPerTrigger(n))
}

func (h HTTPInvoker) softwareTrigger() error {
	return status(h.Inv.SoftwareTrigger())
}

func (h HTTPInvoker) resetStream() error {
	return status(h.Inv.ResetStream())
}

// Supported answers whether the strategy named by the query parameter
// strategy is supported, as json {'bool': value}.  Without the parameter the
// current strategy is probed.
func (h HTTPInvoker) Supported(w http.ResponseWriter, r *http.Request) {
	strat := h.Inv.AcquisitionStrategy()
	if s := r.URL.Query().Get("strategy"); s != "" {
		var err error
		strat, err = invoker.ParseAcquisitionStrategy(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	generichttp.GetBool(func() (bool, error) {
		return h.Inv.IsAcquisitionStrategySupported(strat)
	})(w, r)
}

// StatsReport is the reply of GET /stats
type StatsReport struct {
	invoker.Stats
	StreamID       string        `json:"streamID"`
	Acquiring      bool          `json:"acquiring"`
	Strategy       string        `json:"strategy"`
	BufferStrategy string        `json:"bufferStrategy"`
	BufferCount    int           `json:"bufferCount"`
	Monitor        *MonitorStats `json:"monitor,omitempty"`
}

// Stats replies with the delivery counters and the invoker's state as JSON
func (h HTTPInvoker) Stats(w http.ResponseWriter, r *http.Request) {
	rep := StatsReport{
		Stats:          h.Inv.Stats(),
		Acquiring:      h.Inv.IsInAcquisition(),
		Strategy:       h.Inv.AcquisitionStrategy().String(),
		BufferStrategy: h.Inv.BufferStrategy().String(),
		BufferCount:    h.Inv.BufferCount(),
	}
	if id := h.Inv.StreamID(); id != uuid.Nil {
		rep.StreamID = id.String()
	}
	if h.Mon != nil {
		ms := h.Mon.Stats()
		rep.Monitor = &ms
	}
	if err := server.EncodeJSON(w, rep); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Feature reads a string feature from the camera, as json {'str': value}
func (h HTTPInvoker) Feature(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "feature")
	generichttp.GetString(func() (string, error) {
		return h.Cam.GetString(name)
	})(w, r)
}

// CollectHeaderMetadata describes the camera in FITS cards
func (h HTTPInvoker) CollectHeaderMetadata() []fitsio.Card {
	cards := []fitsio.Card{}
	if h.Cam == nil {
		return cards
	}
	if s, err := h.Cam.GetString(camera.FeatureDeviceModelName); err == nil {
		cards = append(cards, fitsio.Card{Name: "CAMMODEL", Value: s, Comment: "camera model"})
	}
	if s, err := h.Cam.GetString(camera.FeatureDeviceSerialNumber); err == nil {
		cards = append(cards, fitsio.Card{Name: "CAMSN", Value: s, Comment: "camera serial number"})
	}
	return cards
}

// Frame returns the most recent frame on a GET request.
//
// the image format may be specified in a query parameter fmt, one of jpg,
// png or fits; default to jpg
func (h HTTPInvoker) Frame(w http.ResponseWriter, r *http.Request) {
	f, ok := h.Mon.Latest()
	if !ok {
		http.Error(w, "no frame has been delivered yet", http.StatusNotFound)
		return
	}
	format := r.URL.Query().Get("fmt")
	if format == "" {
		format = "jpg"
	}

	// encode to memory first so an encoding error can still change the status
	buf := &bytes.Buffer{}
	var err error
	hdr := w.Header()
	switch format {
	case "jpg", "jpeg":
		hdr.Set("Content-Type", "image/jpeg")
		err = WriteJPEG(buf, f)
	case "png":
		hdr.Set("Content-Type", "image/png")
		err = WritePNG(buf, f)
	case "fits":
		hdr.Set("Content-Type", "image/fits")
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
		cards := append(h.CollectHeaderMetadata(), FrameCards(f)...)
		err = WriteFits(buf, cards, f)
	default:
		http.Error(w, "unknown image format "+format, http.StatusBadRequest)
		return
	}
	if err != nil {
		hdr.Del("Content-Disposition")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
