package network

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Port is the part of a serial port the mapper needs.
type Port interface {
	io.Reader
	io.Closer
}

// OpenFunc opens a serial port.
type OpenFunc func(path string, baud int) (Port, error)

// OpenSerial opens a real serial port at 8N1.
func OpenSerial(path string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", path, err)
	}
	return port, nil
}

// SerialSource reads updates from a serial line. The whole life of the
// port is one connection.
type SerialSource struct {
	Path string
	Baud int
	Open OpenFunc

	ids *atomic.Uint64
	log *zap.Logger
}

// NewSerialSource creates a source for the port at path.
func NewSerialSource(path string, baud int, ids *atomic.Uint64, log *zap.Logger) *SerialSource {
	if log == nil {
		log = zap.NewNop()
	}
	if ids == nil {
		ids = new(atomic.Uint64)
	}
	return &SerialSource{Path: path, Baud: baud, Open: OpenSerial, ids: ids, log: log}
}

// Run opens the port and streams frames to out until the port fails or
// ctx is cancelled.
func (s *SerialSource) Run(ctx context.Context, out chan<- Frame) error {
	port, err := s.Open(s.Path, s.Baud)
	if err != nil {
		return err
	}
	id := s.ids.Add(1)
	log := s.log.With(zap.Uint64("conn", id), zap.String("port", s.Path))
	log.Info("serial port open", zap.Int("baud", s.Baud))

	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()
	defer port.Close()

	err = readFrames(ctx, port, id, s.Path, out)
	closed(ctx, id, s.Path, out)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.Path, err)
	}
	log.Info("serial port closed")
	return nil
}
