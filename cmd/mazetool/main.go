// mazetool is a CLI utility for replaying robot telemetry and inspecting
// the mapper's session journal.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/robomap/internal/maze"
	"github.com/Faultbox/robomap/internal/session"
	"github.com/Faultbox/robomap/internal/store"
	"github.com/Faultbox/robomap/pkg/units"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "replay":
		err = cmdReplay(args, os.Stdout)
	case "sessions", "ls":
		err = cmdSessions(args, os.Stdout)
	case "packets":
		err = cmdPackets(args, os.Stdout)
	case "dump":
		err = cmdDump(args, os.Stdout)
	case "export":
		err = cmdExport(args, os.Stdout)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mazetool - maze mapper telemetry and journal utility

Usage:
  mazetool <command> [options]

Commands:
  replay [-tile cm] [-events] <packets.jsonl>   Build a map from recorded packets
  sessions <robomap.db>                         List journaled sessions
  packets <robomap.db> <session>                List a session's packets
  dump <robomap.db> <session>                   Print a session's latest map
  export [-o out.yaml] <robomap.db> <session>   Write a session's latest map as YAML

Examples:
  mazetool replay run1.jsonl
  mazetool sessions robomap.db
  mazetool dump robomap.db 7f0c...
  mazetool export -o run1.yaml robomap.db 7f0c...`)
}

var errUsage = errors.New("bad usage")

func cmdReplay(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	tile := fs.Float64("tile", 30, "Tile size in centimetres")
	events := fs.Bool("events", false, "Print renderer events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mazetool replay [-tile cm] [-events] <packets.jsonl>")
		return errUsage
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	return replay(f, w, *tile, *events)
}

// replay feeds one record per line into a fresh session and prints the
// outcome of each and the final map.
func replay(r io.Reader, w io.Writer, tileCM float64, events bool) error {
	g := maze.DefaultGeometry()
	g.Tile = units.Centimeters(tileCM)
	cfg := maze.Config{Geometry: g}

	counts := map[maze.EventKind]int{}
	cfg.Renderer = maze.RendererFunc(func(e maze.Event) { counts[e.Kind]++ })
	if events {
		cfg.Renderer = maze.MultiRenderer(cfg.Renderer, maze.RendererFunc(func(e maze.Event) {
			p := e.Pose.Position
			fmt.Fprintf(w, "  %-7s segment %d at (%.3f, %.3f, %.3f)\n", e.Kind, e.Segment, p.X, p.Y, p.Z)
		}))
	}
	s := session.New(0, "replay", cfg)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		res, err := s.Handle([]byte(line))
		id := "-"
		if res.PacketID != nil {
			id = fmt.Sprint(*res.PacketID)
		}
		if err != nil {
			fmt.Fprintf(w, "#%d id=%s %s: %v\n", res.Seq, id, res.Outcome, err)
		} else {
			fmt.Fprintf(w, "#%d id=%s %s\n", res.Seq, id, res.Outcome)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d packets, %d segments", s.Arrived(), len(s.Map().Segments()))
	for k := maze.EventFloor; k <= maze.EventSegment; k++ {
		fmt.Fprintf(w, ", %d %s", counts[k], k)
	}
	fmt.Fprintln(w)
	if s.Faulted() {
		fmt.Fprintf(w, "faulted: %v\n", s.Fault())
	}
	for i, seg := range s.Map().Segments() {
		off := seg.Offset()
		fmt.Fprintf(w, "segment %d: %dx%d rooms, offset (%.3f, %.3f, %.3f)\n",
			i, seg.LogicWidth(), seg.LogicHeight(), off.X, off.Y, off.Z)
	}
	fmt.Fprintf(w, "\n%s", s.Map())
	return nil
}

func openStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return store.Open(context.Background(), path, nil)
}

func cmdSessions(args []string, w io.Writer) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: mazetool sessions <robomap.db>")
		return errUsage
	}
	st, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.Sessions(context.Background())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tREMOTE\tSTARTED\tDURATION\tPACKETS\tFAULT")
	for _, s := range sessions {
		dur := "running"
		if s.EndedAt != nil {
			dur = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.Remote, s.StartedAt.Local().Format(time.DateTime), dur, s.Packets, s.Fault)
	}
	return tw.Flush()
}

func sessionArgs(args []string, usage string) (*store.Store, uuid.UUID, error) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		return nil, uuid.Nil, errUsage
	}
	id, err := uuid.Parse(args[1])
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("session id %q: %w", args[1], err)
	}
	st, err := openStore(args[0])
	if err != nil {
		return nil, uuid.Nil, err
	}
	return st, id, nil
}

func cmdPackets(args []string, w io.Writer) error {
	st, id, err := sessionArgs(args, "Usage: mazetool packets <robomap.db> <session>")
	if err != nil {
		return err
	}
	defer st.Close()

	pkts, err := st.Packets(context.Background(), id)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tOUTCOME\tPAYLOAD\tERROR")
	for _, p := range pkts {
		pid := "-"
		if p.PacketID != nil {
			pid = fmt.Sprint(*p.PacketID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.Seq, pid, p.Outcome, compact(p.Payload), p.Error)
	}
	return tw.Flush()
}

func compact(payload []byte) string {
	var v any
	if json.Unmarshal(payload, &v) != nil {
		return fmt.Sprintf("%q", payload)
	}
	out, _ := json.Marshal(v)
	return string(out)
}

func latest(st *store.Store, id uuid.UUID) (maze.Snapshot, int64, error) {
	snap, seq, err := st.LatestSnapshot(context.Background(), id)
	if errors.Is(err, store.ErrNotFound) {
		return snap, seq, fmt.Errorf("session %s has no snapshot: %w", id, err)
	}
	return snap, seq, err
}

func cmdDump(args []string, w io.Writer) error {
	st, id, err := sessionArgs(args, "Usage: mazetool dump <robomap.db> <session>")
	if err != nil {
		return err
	}
	defer st.Close()

	snap, seq, err := latest(st, id)
	if err != nil {
		return err
	}
	m, err := maze.Restore(snap, maze.Config{})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "session %s after %d packets, heading %s\n\n%s", id, seq+1, m.Heading(), m)
	return nil
}

func cmdExport(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, id, err := sessionArgs(fs.Args(), "Usage: mazetool export [-o out.yaml] <robomap.db> <session>")
	if err != nil {
		return err
	}
	defer st.Close()

	snap, _, err := latest(st, id)
	if err != nil {
		return err
	}
	if _, err := maze.Restore(snap, maze.Config{}); err != nil {
		return fmt.Errorf("journaled snapshot is invalid: %w", err)
	}

	if *out == "" {
		return writeYAML(w, snap)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := writeYAML(f, snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
