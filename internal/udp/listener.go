package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ReadTimeout bounds each receive so a stop request is noticed.
const ReadTimeout = time.Second

// Listener receives datagrams into a fixed-size buffer. Longer datagrams are
// truncated to the buffer length.
type Listener struct {
	conn    *net.UDPConn
	buf     []byte
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

func Listen(addr string, bufLen int) (*Listener, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	if bufLen <= 0 {
		bufLen = 256
	}
	return &Listener{conn: conn, buf: make([]byte, bufLen), timeout: ReadTimeout}, nil
}

func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Receive waits up to ReadTimeout for one datagram. A timeout returns
// (nil, nil). The returned slice is reused by the next call.
func (l *Listener) Receive() ([]byte, error) {
	if err := l.conn.SetReadDeadline(time.Now().Add(l.timeout)); err != nil {
		return nil, err
	}
	n, _, err := l.conn.ReadFromUDP(l.buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	return l.buf[:n], nil
}

// Serve hands every datagram to handle until ctx is done or a receive fails.
// Errors from handle are not fatal. A receive error after ctx is done, as
// caused by Close, is reported as nil.
func (l *Listener) Serve(ctx context.Context, handle func([]byte) error) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		b, err := l.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("udp receive: %w", err)
		}
		if b == nil {
			continue
		}
		_ = handle(b)
	}
}

// Close may be called more than once.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.conn.Close()
}
