package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/tunegate/internal/shared"
)

type stubHandler struct {
	routes []string
	hits   []string
}

func (h *stubHandler) Routes() []string { return h.routes }

func (h *stubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.hits = append(h.hits, r.URL.Path)
	w.WriteHeader(http.StatusNoContent)
}

func TestBasicRouter(t *testing.T) {
	t.Run("Handle", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusTeapot {
			t.Errorf("GET /ping = %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("DELETE /ping = %d, want 405", rec.Code)
		}
		if rec.Header().Get("Allow") != http.MethodGet {
			t.Errorf("Allow = %q", rec.Header().Get("Allow"))
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET /missing = %d, want 404", rec.Code)
		}
	})

	t.Run("Handler", func(t *testing.T) {
		router := NewBasicRouter()
		h := &stubHandler{routes: []string{"/a", "/b"}}
		router.Handler(h)

		for _, path := range []string{"/a", "/b"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusNoContent {
				t.Errorf("GET %s = %d", path, rec.Code)
			}
		}
		if strings.Join(h.hits, ",") != "/a,/b" {
			t.Errorf("hits = %v", h.hits)
		}
	})

	t.Run("MiddlewareOrder", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("first"), tag("second"))
		router.Handler(&stubHandler{routes: []string{"/"}})
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("middleware order = %v", order)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("LoggingOmitsQuery", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)

		var seen string
		h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestID(r.Context())
			w.Write([]byte("ok"))
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code=secret-code&state=s", nil))

		if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
			t.Errorf("request id header %q, context %q", rec.Header().Get(RequestIDHeader), seen)
		}
		out := buf.String()
		if !strings.Contains(out, "/auth/callback") {
			t.Errorf("expected path in log output: %s", out)
		}
		if strings.Contains(out, "secret-code") {
			t.Errorf("query leaked into log output: %s", out)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		var buf bytes.Buffer
		h := Recover(shared.NewLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		var body errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Error != "Internal server error" {
			t.Errorf("error = %q", body.Error)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Error("expected panic value to be logged")
		}
	})

	t.Run("RecoverRethrowsAbort", func(t *testing.T) {
		h := Recover(shared.NewLogger(&bytes.Buffer{}))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		defer func() {
			if v := recover(); v != http.ErrAbortHandler {
				t.Errorf("recovered %v, want ErrAbortHandler", v)
			}
		}()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
