package network

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/robomap/internal/network/packets"
)

func recv(t *testing.T, ch <-chan Frame) Frame {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func TestReadFrames(t *testing.T) {
	input := `{"id":0,"floor":1}{"id":1}` + "\n" + `  {"id":2,"walls":5}` + "\n"
	out := make(chan Frame, 8)

	err := readFrames(context.Background(), strings.NewReader(input), 7, "test", out)
	require.NoError(t, err)
	require.Len(t, out, 3)

	want := []string{`{"id":0,"floor":1}`, `{"id":1}`, `{"id":2,"walls":5}`}
	for _, w := range want {
		f := <-out
		assert.Equal(t, uint64(7), f.Conn)
		assert.JSONEq(t, w, string(f.Data))
		assert.False(t, f.Received.IsZero())
	}
}

func TestReadFramesSyntaxError(t *testing.T) {
	out := make(chan Frame, 8)
	err := readFrames(context.Background(), strings.NewReader(`{"id":0} {"id": }`), 1, "test", out)
	require.Error(t, err)
	assert.Len(t, out, 1)
}

func TestListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ids atomic.Uint64
	l := NewListener("127.0.0.1:0", &ids, nil)
	require.NoError(t, l.Listen(ctx))

	out := make(chan Frame, 16)
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, out) }()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("{\"id\":0,\"direction\":1}\n{\"id\":1,\"positionUpdate\":1}\n"))
	require.NoError(t, err)

	first := recv(t, out)
	second := recv(t, out)
	assert.Equal(t, first.Conn, second.Conn)
	assert.JSONEq(t, `{"id":1,"positionUpdate":1}`, string(second.Data))

	require.NoError(t, conn.Close())
	end := recv(t, out)
	assert.True(t, end.Closed)
	assert.Equal(t, first.Conn, end.Conn)

	conn2, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = conn2.Write([]byte(`{"id":0}`))
	require.NoError(t, err)
	next := recv(t, out)
	assert.NotEqual(t, first.Conn, next.Conn)
	conn2.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAnnounce(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		got <- b
	}()

	addr := ln.Addr().(*net.TCPAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, Announce(ctx, "127.0.0.1", addr.Port, 5000, nil))

	select {
	case b := <-got:
		var a packets.Announce
		require.NoError(t, json.Unmarshal(b, &a))
		assert.Equal(t, 5000, a.ReceivingPort)
	case <-time.After(2 * time.Second):
		t.Fatal("robot never received the announcement")
	}
}

func TestAnnounceUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, Announce(ctx, "127.0.0.1", port, 5000, nil))
}

func TestSerialSource(t *testing.T) {
	var ids atomic.Uint64
	ids.Store(41)
	s := NewSerialSource("/dev/ttyFAKE", 115200, &ids, nil)
	s.Open = func(path string, baud int) (Port, error) {
		assert.Equal(t, "/dev/ttyFAKE", path)
		assert.Equal(t, 115200, baud)
		return io.NopCloser(strings.NewReader(`{"id":0}{"id":1}`)), nil
	}

	out := make(chan Frame, 4)
	require.NoError(t, s.Run(context.Background(), out))
	require.Len(t, out, 3)

	f := <-out
	assert.Equal(t, uint64(42), f.Conn)
	assert.Equal(t, "/dev/ttyFAKE", f.Remote)
	<-out
	end := <-out
	assert.True(t, end.Closed)
}
