package generichttp_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"

	"github.jpl.nasa.gov/bdube/acqinvoker/generichttp"
)

func TestBindAndEndpoints(t *testing.T) {
	n := 0
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/count"}: generichttp.GetInt(func() (int, error) { return n, nil }),
		{Method: http.MethodPost, Path: "/count"}: generichttp.SetInt(func(i int) error {
			n = i
			return nil
		}),
	}
	r := chi.NewRouter()
	rt.Bind(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/count", strings.NewReader(`{"int": 7}`)))
	if w.Code != http.StatusOK || n != 7 {
		t.Errorf("expected 200 and 7 got %d and %d", w.Code, n)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/count", nil))
	if body := strings.TrimSpace(w.Body.String()); body != `{"int":7}` {
		t.Errorf("expected {\"int\":7} got %s", body)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/endpoints", nil))
	if body := strings.TrimSpace(w.Body.String()); body != `["GET /count","POST /count"]` {
		t.Errorf("unexpected endpoint list %s", body)
	}
}

func TestBadBodyIsBadRequest(t *testing.T) {
	h := generichttp.SetBool(func(bool) error { return nil })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected %d got %d", http.StatusBadRequest, w.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	base := errors.New("nope")
	h := generichttp.SetString(func(string) error { return generichttp.WithStatus(base, http.StatusConflict) })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"str":"x"}`)))
	if w.Code != http.StatusConflict {
		t.Errorf("expected %d got %d", http.StatusConflict, w.Code)
	}
	h = generichttp.Do(func() error { return base })
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected %d got %d", http.StatusInternalServerError, w.Code)
	}
	if !errors.Is(generichttp.WithStatus(base, 400), base) {
		t.Error("expected WithStatus to wrap")
	}
}

func TestEndpointsSorted(t *testing.T) {
	rt := generichttp.RouteTable{
		{Method: http.MethodPost, Path: "/b"}: nil,
		{Method: http.MethodGet, Path: "/b"}:  nil,
		{Method: http.MethodGet, Path: "/a"}:  nil,
	}
	exp := []string{"GET /a", "GET /b", "POST /b"}
	if diff := cmp.Diff(exp, rt.Endpoints()); diff != "" {
		t.Errorf("endpoints mismatch (-want +got):\n%s", diff)
	}
}

func ExampleSubMuxSanitize() {
	fmt.Println(generichttp.SubMuxSanitize("camera/"), generichttp.SubMuxSanitize("/"))
	// Output: /camera /
}
