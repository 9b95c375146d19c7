package client

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestExponentialBackoff_Next(t *testing.T) {
	b := &ExponentialBackoff{Base: 100 * time.Millisecond, Max: time.Second, Factor: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{40, time.Second},
	}
	for _, tt := range tests {
		if got := b.Next(tt.attempt); got != tt.want {
			t.Errorf("Next(%d) = %v; want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialBackoff_Jitter(t *testing.T) {
	b := DefaultBackoff()
	for i := 0; i < 100; i++ {
		got := b.Next(1)
		if got < 160*time.Millisecond || got > 240*time.Millisecond {
			t.Fatalf("Next(1) with 20%% jitter = %v", got)
		}
	}
}

func TestRetryable(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusNotImplemented:      false,
		http.StatusNotFound:            false,
		http.StatusBadRequest:          false,
	} {
		if got := retryable(status); got != want {
			t.Errorf("retryable(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestRetryDelay_RetryAfter(t *testing.T) {
	b := &ExponentialBackoff{Base: 100 * time.Millisecond, Max: 2 * time.Second, Factor: 2}
	resp := func(v string) *http.Response {
		h := http.Header{}
		h.Set("Retry-After", v)
		return &http.Response{Header: h}
	}

	tests := []struct {
		name string
		resp *http.Response
		want time.Duration
	}{
		{"transport error", nil, 100 * time.Millisecond},
		{"no header", &http.Response{Header: http.Header{}}, 100 * time.Millisecond},
		{"longer hint", resp("1"), time.Second},
		{"capped", resp("30"), 2 * time.Second},
		{"garbage", resp("soon"), 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryDelay(b, 0, tt.resp); got != tt.want {
				t.Errorf("retryDelay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSleep_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Hour); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleep(context.Background(), 0); err != nil {
		t.Errorf("expected nil for zero wait, got %v", err)
	}
}
