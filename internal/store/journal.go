package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Faultbox/robomap/internal/maze"
)

// Outcome records what happened to a journaled packet.
type Outcome string

// Packet outcomes.
const (
	OutcomeApplied   Outcome = "applied"   // every field applied
	OutcomePartial   Outcome = "partial"   // some fields rejected
	OutcomeRejected  Outcome = "rejected"  // whole update rejected
	OutcomeLost      Outcome = "lost"      // sequence gap detected
	OutcomeMalformed Outcome = "malformed" // not a valid update
	OutcomeIgnored   Outcome = "ignored"   // session already faulted
)

// Session describes one robot connection.
type Session struct {
	ID        uuid.UUID
	Conn      uint64
	Remote    string
	StartedAt time.Time
	EndedAt   *time.Time
	Fault     string
	Packets   int
}

// Packet is one journaled record as received from the robot.
type Packet struct {
	SessionID  uuid.UUID
	Seq        int64  // arrival order within the session
	PacketID   *int64 // id field of the update, if it had one
	Payload    []byte
	ReceivedAt time.Time
	Outcome    Outcome
	Error      string
}

// CreateSession records the start of a session.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, conn, remote, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID.String(), int64(sess.Conn), sess.Remote, sess.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("creating session %s: %w", sess.ID, err)
	}
	return nil
}

// EndSession records the end of a session and its fault, if any.
func (s *Store) EndSession(ctx context.Context, id uuid.UUID, endedAt time.Time, fault string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, fault = ? WHERE id = ?`,
		endedAt.UTC(), fault, id.String())
	if err != nil {
		return fmt.Errorf("ending session %s: %w", id, err)
	}
	return expectOne(res, "session", id)
}

// FaultSession records a fault without ending the session.
func (s *Store) FaultSession(ctx context.Context, id uuid.UUID, fault string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET fault = ? WHERE id = ?`, fault, id.String())
	if err != nil {
		return fmt.Errorf("faulting session %s: %w", id, err)
	}
	return expectOne(res, "session", id)
}

func expectOne(res sql.Result, what string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

// AppendPacket adds a packet to a session's journal.
func (s *Store) AppendPacket(ctx context.Context, p Packet) error {
	var packetID sql.NullInt64
	if p.PacketID != nil {
		packetID = sql.NullInt64{Int64: *p.PacketID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO packets (session_id, seq, packet_id, payload, received_at, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.SessionID.String(), p.Seq, packetID, string(p.Payload), p.ReceivedAt.UTC(), string(p.Outcome), p.Error)
	if err != nil {
		return fmt.Errorf("journaling packet %d of %s: %w", p.Seq, p.SessionID, err)
	}
	return nil
}

// SaveSnapshot stores the map state including packet seq, the arrival
// index of the last packet applied.
func (s *Store) SaveSnapshot(ctx context.Context, id uuid.UUID, seq int64, snap maze.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (session_id, seq, taken_at, segments, data) VALUES (?, ?, ?, ?, ?)`,
		id.String(), seq, time.Now().UTC(), len(snap.Segments), string(data))
	if err != nil {
		return fmt.Errorf("saving snapshot of %s: %w", id, err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot of a session and the
// packet seq it was taken after.
func (s *Store) LatestSnapshot(ctx context.Context, id uuid.UUID) (maze.Snapshot, int64, error) {
	var (
		seq  int64
		data string
		snap maze.Snapshot
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT seq, data FROM snapshots WHERE session_id = ? ORDER BY seq DESC LIMIT 1`,
		id.String()).Scan(&seq, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, 0, fmt.Errorf("snapshot of %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return snap, 0, fmt.Errorf("loading snapshot of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return snap, 0, fmt.Errorf("decoding snapshot of %s: %w", id, err)
	}
	return snap, seq, nil
}

// Sessions lists all sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.conn, s.remote, s.started_at, s.ended_at, s.fault,
		       (SELECT COUNT(*) FROM packets p WHERE p.session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Session returns one session.
func (s *Store) Session(ctx context.Context, id uuid.UUID) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.conn, s.remote, s.started_at, s.ended_at, s.fault,
		       (SELECT COUNT(*) FROM packets p WHERE p.session_id = s.id)
		FROM sessions s WHERE s.id = ?`, id.String())
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sess, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(r scanner) (Session, error) {
	var (
		sess  Session
		id    string
		conn  int64
		ended sql.NullTime
	)
	if err := r.Scan(&id, &conn, &sess.Remote, &sess.StartedAt, &ended, &sess.Fault, &sess.Packets); err != nil {
		return Session{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Session{}, fmt.Errorf("session id %q: %w", id, err)
	}
	sess.ID = parsed
	sess.Conn = uint64(conn)
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}

// Packets returns a session's journal in arrival order.
func (s *Store) Packets(ctx context.Context, id uuid.UUID) ([]Packet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, packet_id, payload, received_at, outcome, error
		FROM packets WHERE session_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("listing packets of %s: %w", id, err)
	}
	defer rows.Close()

	var out []Packet
	for rows.Next() {
		var (
			p        = Packet{SessionID: id}
			packetID sql.NullInt64
			payload  string
			outcome  string
		)
		if err := rows.Scan(&p.Seq, &packetID, &payload, &p.ReceivedAt, &outcome, &p.Error); err != nil {
			return nil, err
		}
		if packetID.Valid {
			v := packetID.Int64
			p.PacketID = &v
		}
		p.Payload = []byte(payload)
		p.Outcome = Outcome(outcome)
		out = append(out, p)
	}
	return out, rows.Err()
}
