package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/robomap/internal/session"
)

// StateFunc returns the latest session state, or nil.
type StateFunc func() *session.State

// Server serves the viewer endpoints.
type Server struct {
	hub   *Hub
	bc    *Broadcaster
	state StateFunc
	log   *zap.Logger
}

// NewServer creates the viewer server.
func NewServer(hub *Hub, bc *Broadcaster, state StateFunc, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{hub: hub, bc: bc, state: state, log: log}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("viewer listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn("websocket accept", zap.Error(err))
		return
	}
	log := s.log.With(zap.String("viewer", r.RemoteAddr))

	// Late viewers start from the current session. The message repeats the
	// last sequence number so it does not open a gap.
	if st := s.state(); st != nil {
		data, err := json.Marshal(Envelope{Seq: s.bc.Seq(), Type: TypeSession, Payload: sessionPayload(st)})
		if err == nil {
			err = s.hub.Send(conn, data)
		}
		if err != nil {
			log.Warn("sending session to viewer", zap.Error(err))
			_ = conn.Close(websocket.StatusInternalError, "")
			return
		}
	}

	s.hub.Add(conn)
	log.Info("viewer connected", zap.Int("viewers", s.hub.Len()))
	defer func() {
		s.hub.Remove(conn)
		log.Info("viewer disconnected")
	}()

	// Viewers only listen; reading keeps the connection's control frames
	// flowing until it closes.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	st := s.state()
	if st == nil {
		http.Error(w, "no session yet", http.StatusNotFound)
		return
	}
	writeJSON(w, mapResponse(st))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"viewers": s.hub.Len(),
		"seq":     s.bc.Seq(),
	}
	if st := s.state(); st != nil {
		resp["session"] = st.SessionID.String()
		resp["faulted"] = st.Fault != ""
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
