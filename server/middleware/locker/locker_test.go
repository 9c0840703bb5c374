package locker_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.jpl.nasa.gov/bdube/acqinvoker/generichttp"
	"github.jpl.nasa.gov/bdube/acqinvoker/server/middleware/locker"
)

type table generichttp.RouteTable

func (t table) RT() generichttp.RouteTable { return generichttp.RouteTable(t) }

func TestLockRefusesWritesOnly(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	rt := table{
		{Method: http.MethodGet, Path: "/acquisition"}:  ok,
		{Method: http.MethodPost, Path: "/acquisition"}: ok,
	}
	l := locker.New()
	locker.Inject(rt, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	rt.RT().Bind(r)

	do := func(method, path, body string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w.Code
	}
	if c := do(http.MethodPost, "/lock", `{"bool":true}`); c != http.StatusOK {
		t.Fatalf("expected 200 locking got %d", c)
	}
	if !l.Locked() {
		t.Error("expected locked")
	}
	if c := do(http.MethodPost, "/acquisition", `{"bool":true}`); c != http.StatusLocked {
		t.Errorf("expected %d got %d", http.StatusLocked, c)
	}
	if c := do(http.MethodGet, "/acquisition", ""); c != http.StatusOK {
		t.Errorf("expected reads to pass, got %d", c)
	}
	do(http.MethodPost, "/lock", `{"bool":false}`)
	if c := do(http.MethodPost, "/acquisition", `{"bool":true}`); c != http.StatusOK {
		t.Errorf("expected 200 after unlock got %d", c)
	}
}
