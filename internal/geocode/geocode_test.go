package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/civicpulse/engagement-platform/internal/geocode"
	"github.com/civicpulse/engagement-platform/pkg/logger"
)

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func TestReverseGeocodeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("path = %s, want /reverse", r.URL.Path)
		}
		if got := r.URL.Query().Get("format"); got != "jsonv2" {
			t.Errorf("format = %s, want jsonv2", got)
		}
		if got := r.URL.Query().Get("lat"); got != "13.082700" {
			t.Errorf("lat = %s", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent header required by Nominatim usage policy")
		}
		w.Write([]byte(`{"display_name":"Anna Nagar, Chennai, Tamil Nadu, India"}`))
	}))
	defer srv.Close()

	c := geocode.New(srv.URL, time.Second, nopLogger())
	addr, ok := c.ReverseGeocode(context.Background(), 13.0827, 80.2707)
	if !ok {
		t.Fatal("expected address to resolve")
	}
	if addr != "Anna Nagar, Chennai, Tamil Nadu, India" {
		t.Errorf("addr = %q", addr)
	}
}

func TestReverseGeocodeEmptyBaseURL(t *testing.T) {
	c := geocode.New("", time.Second, nopLogger())
	if _, ok := c.ReverseGeocode(context.Background(), 13.0, 80.0); ok {
		t.Fatal("unconfigured client must report absent")
	}
}

func TestReverseGeocodeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := geocode.New(srv.URL, time.Second, nopLogger())
	if _, ok := c.ReverseGeocode(context.Background(), 13.0, 80.0); ok {
		t.Fatal("non-200 must report absent")
	}
}

func TestReverseGeocodeMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := geocode.New(srv.URL, time.Second, nopLogger())
	if _, ok := c.ReverseGeocode(context.Background(), 13.0, 80.0); ok {
		t.Fatal("malformed body must report absent")
	}
}

func TestReverseGeocodeEmptyDisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name":""}`))
	}))
	defer srv.Close()

	c := geocode.New(srv.URL, time.Second, nopLogger())
	if _, ok := c.ReverseGeocode(context.Background(), 13.0, 80.0); ok {
		t.Fatal("empty display_name must report absent")
	}
}

func TestReverseGeocodeUnreachableHost(t *testing.T) {
	c := geocode.New("http://127.0.0.1:1", 200*time.Millisecond, nopLogger())
	if _, ok := c.ReverseGeocode(context.Background(), 13.0, 80.0); ok {
		t.Fatal("connection failure must report absent")
	}
}
