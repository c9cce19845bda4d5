package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"
)

// Frame is one raw record received from the robot. Closed frames carry no
// data and mark the end of a connection.
type Frame struct {
	Conn     uint64
	Remote   string
	Data     []byte
	Received time.Time
	Closed   bool
}

// readFrames splits r into JSON values and sends each one as a Frame.
// Values may be separated by newlines or simply concatenated. It returns
// when r is exhausted, on a read or syntax error, or when ctx is done.
func readFrames(ctx context.Context, r io.Reader, conn uint64, remote string, out chan<- Frame) error {
	dec := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		f := Frame{
			Conn:     conn,
			Remote:   remote,
			Data:     bytes.Clone(raw),
			Received: time.Now(),
		}
		select {
		case out <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// closed sends the end-of-connection marker unless ctx is done.
func closed(ctx context.Context, conn uint64, remote string, out chan<- Frame) {
	select {
	case out <- Frame{Conn: conn, Remote: remote, Received: time.Now(), Closed: true}:
	case <-ctx.Done():
	}
}
