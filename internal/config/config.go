// Package config handles mapper configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/robomap/internal/maze"
	"github.com/Faultbox/robomap/pkg/units"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all mapper settings.
type Config struct {
	Robot   RobotConfig   `yaml:"robot"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Storage StorageConfig `yaml:"storage"`
	Maze    MazeConfig    `yaml:"maze"`
	Logging LoggingConfig `yaml:"logging"`
}

// RobotConfig holds the robot link settings. With SerialPort set the robot
// is read over serial and the TCP settings are ignored.
type RobotConfig struct {
	Host          string        `yaml:"host"`           // robot hostname for the announcement
	Port          int           `yaml:"port"`           // robot announcement port
	Announce      bool          `yaml:"announce"`       // send the receiving port on start
	ReceivingPort int           `yaml:"receiving_port"` // port the robot streams to
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	SerialPort    string        `yaml:"serial_port"`
	BaudRate      int           `yaml:"baud_rate"`
}

// ViewerConfig holds the viewer HTTP server settings.
type ViewerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig holds the journal database settings. An empty path
// disables persistence.
type StorageConfig struct {
	Path          string `yaml:"path"`
	SnapshotEvery int    `yaml:"snapshot_every"` // packets between snapshots
}

// MazeConfig holds the physical maze measures in centimetres.
type MazeConfig struct {
	TileCM          float64 `yaml:"tile_cm"`
	TileThicknessCM float64 `yaml:"tile_thickness_cm"`
	WallHeightCM    float64 `yaml:"wall_height_cm"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Robot: RobotConfig{
			Host:          "robotica.local",
			Port:          3000,
			Announce:      true,
			ReceivingPort: 5000,
			DialTimeout:   5 * time.Second,
			BaudRate:      115200,
		},
		Viewer: ViewerConfig{
			ListenAddr:   ":8080",
			WriteTimeout: 3 * time.Second,
		},
		Storage: StorageConfig{
			Path:          "robomap.db",
			SnapshotEvery: 25,
		},
		Maze: MazeConfig{
			TileCM:          30,
			TileThicknessCM: 2,
			WallHeightCM:    15,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks values that would make the mapper misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.Robot.SerialPort == "" && (c.Robot.ReceivingPort <= 0 || c.Robot.ReceivingPort > 65535) {
		errs = append(errs, fmt.Errorf("%w: robot.receiving_port %d", ErrInvalid, c.Robot.ReceivingPort))
	}
	if c.Robot.SerialPort != "" && c.Robot.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: robot.baud_rate %d", ErrInvalid, c.Robot.BaudRate))
	}
	if c.Storage.SnapshotEvery < 0 {
		errs = append(errs, fmt.Errorf("%w: storage.snapshot_every %d", ErrInvalid, c.Storage.SnapshotEvery))
	}
	if c.Maze.TileCM <= 0 || c.Maze.TileThicknessCM < 0 || c.Maze.WallHeightCM < 0 {
		errs = append(errs, fmt.Errorf("%w: maze measures must be positive", ErrInvalid))
	}
	return errors.Join(errs...)
}

// Geometry converts the maze measures for the map builder.
func (m MazeConfig) Geometry() maze.Geometry {
	g := maze.DefaultGeometry()
	g.Tile = units.Centimeters(m.TileCM)
	g.TileThickness = units.Centimeters(m.TileThicknessCM)
	g.WallHeight = units.Centimeters(m.WallHeightCM)
	return g
}
