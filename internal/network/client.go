// Package network carries telemetry from the robot to the mapper.
//
// The robot is told where to stream with Announce and then connects back
// to a Listener, or writes to a serial line read by SerialSource. Every
// source delivers raw JSON records as Frames on one shared channel, which
// is the single ordered queue the map is fed from.
package network

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/robomap/internal/network/packets"
)

// DefaultRobotPort is the port the robot listens on for announcements.
const DefaultRobotPort = 3000

// Announce connects to the robot and tells it which port to stream updates
// to. The connection is closed once the message is written.
func Announce(ctx context.Context, host string, port, receivingPort int, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to robot at %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}

	msg := (&packets.Announce{ReceivingPort: receivingPort}).Encode()
	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("announcing to %s: %w", addr, err)
	}
	log.Info("announced receiving port to robot",
		zap.String("robot", addr),
		zap.Int("port", receivingPort))
	return nil
}
