package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svsp-upload/internal/config"
)

func TestRunStopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		ServerURL: "http://127.0.0.1:1",
		Endpoint:  "/api/upload",
		Port:      "0",
		Discovery: config.DiscoveryConfig{Enabled: true, Addr: "127.0.0.1:0"},
	}
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, srv, cfg) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunReportsListenError(t *testing.T) {
	cfg := &config.Config{Port: "x"}
	srv := &http.Server{Addr: "256.0.0.1:bad", Handler: http.NotFoundHandler()}

	err := run(context.Background(), srv, cfg)
	assert.Error(t, err)
}
