package discovery

import (
	"context"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startResponder(t *testing.T, advertise string) string {
	t.Helper()
	r, err := NewResponder("127.0.0.1:0", advertise, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return r.Addr().String()
}

func TestFindServer(t *testing.T) {
	addr := startResponder(t, "http://10.1.2.3:8000/api/upload")

	url, err := FindServer(context.Background(), addr, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "http://10.1.2.3:8000/api/upload", url)
}

func TestResponderIgnoresUnknownRequests(t *testing.T) {
	addr := startResponder(t, "http://example")

	conn, err := net.Dial("udp4", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("HELLO"))
	require.NoError(t, err)
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = conn.Read(make([]byte, 64))
	assert.Error(t, err)
}

func TestFindServerTimesOut(t *testing.T) {
	// Bind a socket that never answers.
	silent, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer silent.Close()

	_, err = FindServer(context.Background(), silent.LocalAddr().String(), 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBroadcastTarget(t *testing.T) {
	got, err := BroadcastTarget(":9999")
	require.NoError(t, err)
	assert.Equal(t, "255.255.255.255:9999", got)

	_, err = BroadcastTarget("no-port")
	assert.Error(t, err)
}
