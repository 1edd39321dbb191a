package shared

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestGenerateState(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		state, err := GenerateState()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		raw, err := base64.RawURLEncoding.DecodeString(state)
		if err != nil {
			t.Fatalf("state should be raw url base64: %v", err)
		}
		if len(raw) != stateBytes {
			t.Errorf("expected %d random bytes, got %d", stateBytes, len(raw))
		}
		if seen[state] {
			t.Fatalf("duplicate state %s", state)
		}
		seen[state] = true
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected distinct ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %s", a)
	}
}

func TestRedact(t *testing.T) {
	tc := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: ""},
		{name: "short", secret: "abc", want: "****"},
		{name: "long", secret: "BQDx1234567890", want: "BQDx****"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Redact(tt.secret); got != tt.want {
				t.Errorf("Redact() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("  short  "); got != "short" {
		t.Errorf("expected trimmed body, got %q", got)
	}

	long := strings.Repeat("x", maxLoggedBody+50)
	got := Truncate(long)
	if len(got) != maxLoggedBody+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated body with ellipsis, got length %d", len(got))
	}
}

func TestErrors(t *testing.T) {
	t.Run("RejectedError", func(t *testing.T) {
		err := error(&RejectedError{Op: "exchange", Status: 503, Body: "down"})
		if !errors.Is(err, ErrUpstreamRejected) {
			t.Error("expected RejectedError to match ErrUpstreamRejected")
		}
		if errors.Is(err, ErrUpstreamUnavailable) {
			t.Error("RejectedError should not match ErrUpstreamUnavailable")
		}
		if StatusOf(err) != 503 {
			t.Errorf("expected status 503, got %d", StatusOf(err))
		}
		if !err.(*RejectedError).Transient() {
			t.Error("expected 503 to be transient")
		}
		if (&RejectedError{Status: 400}).Transient() {
			t.Error("expected 400 not to be transient")
		}
	})

	t.Run("Unavailable", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := Unavailable("refresh", cause)
		if !errors.Is(err, ErrUpstreamUnavailable) {
			t.Error("expected ErrUpstreamUnavailable")
		}
		if !errors.Is(err, cause) {
			t.Error("expected cause to be preserved")
		}
		if StatusOf(err) != 0 {
			t.Errorf("expected no status, got %d", StatusOf(err))
		}
	})
}

func TestBrowserCommand(t *testing.T) {
	for _, goos := range []string{"darwin", "linux", "windows"} {
		cmd, err := browserCommand(goos, "http://localhost:3000/auth/start")
		if err != nil {
			t.Errorf("%s: expected command, got %v", goos, err)
			continue
		}
		if got := cmd.Args[len(cmd.Args)-1]; got != "http://localhost:3000/auth/start" {
			t.Errorf("%s: expected url as last argument, got %s", goos, got)
		}
	}

	if _, err := browserCommand("plan9", "http://localhost"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
