package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"429", &StatusError{Service: "x", StatusCode: 429}, true},
		{"408", &StatusError{Service: "x", StatusCode: 408}, true},
		{"503", &StatusError{Service: "x", StatusCode: 503}, true},
		{"400", &StatusError{Service: "x", StatusCode: 400}, false},
		{"401", &StatusError{Service: "x", StatusCode: 401}, false},
		{"net", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"plain", errors.New("bad json"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: IsRetryableError=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestRetryAfterDuration(t *testing.T) {
	h := http.Header{}
	if got := RetryAfterDuration(h, time.Second, 0); got != time.Second {
		t.Fatalf("fallback: got %v", got)
	}
	h.Set("Retry-After", "30")
	if got := RetryAfterDuration(h, time.Second, 5*time.Second); got != 5*time.Second {
		t.Fatalf("capped: got %v", got)
	}
}
