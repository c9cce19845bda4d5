package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagListen = flag.String("listen", "", "Viewer listen address")
	flagSerial = flag.String("serial", "", "Read the robot from this serial port instead of TCP")
	flagDB     = flag.String("db", "", "Journal database path")
	flagWrite  = flag.String("write-config", "", "Write the effective config to this path and exit, \"user\" for the user config dir")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigPath returns the -write-config target, if any.
func WriteConfigPath() string {
	return *flagWrite
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagListen != "" {
		cfg.Viewer.ListenAddr = *flagListen
	}
	if *flagSerial != "" {
		cfg.Robot.SerialPort = *flagSerial
		cfg.Robot.Announce = false
	}
	if *flagDB != "" {
		cfg.Storage.Path = *flagDB
	}
}
