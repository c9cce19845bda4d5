// Package mapper wires the robot link, the map builder, the journal and
// the viewer into one running process.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/robomap/internal/config"
	"github.com/Faultbox/robomap/internal/network"
	"github.com/Faultbox/robomap/internal/session"
	"github.com/Faultbox/robomap/internal/store"
	"github.com/Faultbox/robomap/internal/viewer"
)

// frameQueue is the capacity of the shared frame channel.
const frameQueue = 256

// Source delivers frames from the robot.
type Source interface {
	Run(ctx context.Context, out chan<- network.Frame) error
}

// Mapper is one mapping process.
type Mapper struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *store.Store
	hub    *viewer.Hub
	bc     *viewer.Broadcaster
	runner *session.Runner
	source Source
	ids    atomic.Uint64

	// Listener is set when the robot connects over TCP.
	Listener *network.Listener
}

// New creates a mapper from cfg. The journal database is opened and
// migrated here.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Mapper, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Mapper{cfg: cfg, log: log}

	if cfg.Storage.Path != "" {
		st, err := store.Open(ctx, cfg.Storage.Path, log.Named("store"))
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		m.store = st
	} else {
		log.Warn("journal disabled, sessions will not be persisted")
	}

	m.hub = viewer.NewHub(cfg.Viewer.WriteTimeout)
	m.bc = viewer.NewBroadcaster(m.hub, log.Named("viewer"))

	rcfg := session.Config{
		Geometry:      cfg.Maze.Geometry(),
		Renderer:      m.bc,
		SnapshotEvery: cfg.Storage.SnapshotEvery,
		OnState:       m.bc.SessionChanged,
		Log:           log.Named("session"),
	}
	if m.store != nil {
		rcfg.Journal = m.store
	}
	m.runner = session.NewRunner(rcfg)

	if cfg.Robot.SerialPort != "" {
		m.source = network.NewSerialSource(cfg.Robot.SerialPort, cfg.Robot.BaudRate, &m.ids, log.Named("serial"))
	} else {
		addr := fmt.Sprintf(":%d", cfg.Robot.ReceivingPort)
		m.Listener = network.NewListener(addr, &m.ids, log.Named("network"))
		m.source = m.Listener
	}
	return m, nil
}

// Runner returns the session runner.
func (m *Mapper) Runner() *session.Runner {
	return m.runner
}

// Run serves until ctx is cancelled or a component fails.
func (m *Mapper) Run(ctx context.Context) error {
	if m.Listener != nil {
		if err := m.Listener.Listen(ctx); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	frames := make(chan network.Frame, frameQueue)

	g.Go(func() error {
		m.bc.Run(ctx)
		return nil
	})
	g.Go(func() error {
		srv := viewer.NewServer(m.hub, m.bc, m.state, m.log.Named("viewer"))
		return srv.ListenAndServe(ctx, m.cfg.Viewer.ListenAddr)
	})
	g.Go(func() error {
		return m.runner.Run(ctx, frames)
	})
	g.Go(func() error {
		err := m.source.Run(ctx, frames)
		if err == nil && ctx.Err() == nil {
			// A serial source ends with its port. Keep serving the viewer.
			m.log.Info("robot source finished")
			<-ctx.Done()
		}
		return err
	})

	if m.cfg.Robot.Announce && m.cfg.Robot.SerialPort == "" {
		g.Go(func() error {
			actx, cancel := context.WithTimeout(ctx, m.cfg.Robot.DialTimeout)
			defer cancel()
			err := network.Announce(actx, m.cfg.Robot.Host, m.cfg.Robot.Port, m.cfg.Robot.ReceivingPort, m.log.Named("network"))
			if err != nil {
				m.log.Warn("robot announcement failed, waiting for the robot anyway", zap.Error(err))
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (m *Mapper) state() *session.State {
	return m.runner.State()
}

// Close releases the journal.
func (m *Mapper) Close() {
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			m.log.Warn("closing journal", zap.Error(err))
		}
	}
}
