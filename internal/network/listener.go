package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Listener accepts robot connections over TCP. Each accepted connection
// gets a new connection id.
type Listener struct {
	addr string
	log  *zap.Logger

	mu sync.Mutex
	ln net.Listener

	nextConn *atomic.Uint64
}

// NewListener creates a listener for addr, e.g. ":5000". Connection ids
// are drawn from ids so several sources never reuse one.
func NewListener(addr string, ids *atomic.Uint64, log *zap.Logger) *Listener {
	if log == nil {
		log = zap.NewNop()
	}
	if ids == nil {
		ids = new(atomic.Uint64)
	}
	return &Listener{addr: addr, log: log, nextConn: ids}
}

// Addr returns the bound address once Run has started listening.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Listen binds the address. Run calls it if needed.
func (l *Listener) Listen(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return nil
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.addr, err)
	}
	l.ln = ln
	return nil
}

// Run accepts connections and streams their frames to out until ctx is
// cancelled.
func (l *Listener) Run(ctx context.Context, out chan<- Frame) error {
	if err := l.Listen(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	l.log.Info("listening for robot", zap.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting: %w", err)
		}
		id := l.nextConn.Add(1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.serve(ctx, id, conn, out)
		}()
	}
}

func (l *Listener) serve(ctx context.Context, id uint64, conn net.Conn, out chan<- Frame) {
	remote := conn.RemoteAddr().String()
	log := l.log.With(zap.Uint64("conn", id), zap.String("remote", remote))
	log.Info("robot connected")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	if err := readFrames(ctx, conn, id, remote, out); err != nil && ctx.Err() == nil {
		log.Warn("robot stream ended with error", zap.Error(err))
	}
	closed(ctx, id, remote, out)
	log.Info("robot disconnected")
}
