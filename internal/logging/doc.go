// Package logging provides structured logging with per-module log levels.
//
// Records go to the systemd journal when journald is reachable and to stdout
// when it is connected to a terminal, pipe or file; to both when both are.
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"button": "debug"},
//	})
//
//	logger := logging.GetLogger("router")
//	logger.Info("Starting event router")
//
// Every logger carries a module attribute, which the journal stores as the
// MODULE field:
//
//	journalctl -t buttonhat MODULE=button -f
//
// Loggers share a LevelVar per module, so SetLevels changes the levels of
// loggers already handed out. The configuration watcher uses this to apply
// edits to the [logging] table of the config file without a restart:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	button = "debug"
//	uart = "warn"
package logging
