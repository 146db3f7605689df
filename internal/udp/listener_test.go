package udp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListener_ReceiveAndTruncate(t *testing.T) {
	l, err := Listen("127.0.0.1:0", 8)
	require.NoError(t, err)
	defer l.Close()

	s, err := NewSender(l.Addr().String())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send([]byte("0123456789")))
	b, err := l.Receive()
	require.NoError(t, err)
	require.Equal(t, "01234567", string(b))
}

func TestListener_ServeStopsOnClose(t *testing.T) {
	l, err := Listen("127.0.0.1:0", 256)
	require.NoError(t, err)

	s, err := NewSender(l.Addr().String())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- l.Serve(ctx, func(b []byte) error {
			got <- string(b)
			return nil
		})
	}()

	require.NoError(t, s.Send([]byte("hello")))
	select {
	case v := <-got:
		require.Equal(t, "hello", v)
	case <-time.After(2 * time.Second):
		t.Fatalf("datagram not delivered")
	}

	cancel()
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("Serve did not return")
	}
}
