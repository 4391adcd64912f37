package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/buttonhat/cmd"
	"github.com/smazurov/buttonhat/internal/button"
	"github.com/smazurov/buttonhat/internal/config"
	"github.com/smazurov/buttonhat/internal/events"
	"github.com/smazurov/buttonhat/internal/lifecycle"
	"github.com/smazurov/buttonhat/internal/logging"
	"github.com/smazurov/buttonhat/internal/metrics"
	"github.com/smazurov/buttonhat/internal/router"
	"github.com/smazurov/buttonhat/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"buttonhat.toml"`

	// Board settings. Individual pins are overridden in the [board] table.
	Board   string `help:"Board bindings (auto, rainbow-hat, nanopc-t6)" default:"auto" toml:"board.name" env:"BOARD"`
	DevRoot string `help:"Directory holding tty devices" default:"/dev" toml:"uart.dev_root" env:"UART_DEV_ROOT"`

	// Button settings
	ButtonsDebounce     string `help:"Ignore level changes shorter than this" default:"20ms" toml:"buttons.debounce" env:"BUTTONS_DEBOUNCE"`
	ButtonsDenoise      string `help:"Ignore glitches shorter than this" default:"0s" toml:"buttons.denoise" env:"BUTTONS_DENOISE"`
	ButtonsPollInterval string `help:"Edge wait slice, bounds shutdown latency" default:"100ms" toml:"buttons.poll_interval" env:"BUTTONS_POLL_INTERVAL"`
	ButtonsActiveHigh   bool   `help:"Treat a high level as pressed" default:"false" toml:"buttons.active_high" env:"BUTTONS_ACTIVE_HIGH"`

	// Features settings
	FeaturesUartTable bool `help:"Write the diagnostic table to the UART on key B" default:"true" toml:"features.uart_table" env:"FEATURES_UART_TABLE"`

	// Metrics settings
	MetricsTextfile string `help:"node_exporter textfile to write metrics to (empty disables)" default:"" toml:"metrics.textfile" env:"METRICS_TEXTFILE"`
	MetricsInterval string `help:"Metrics textfile write interval" default:"15s" toml:"metrics.interval" env:"METRICS_INTERVAL"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingWatch      bool   `help:"Apply logging changes in the config file without a restart" default:"true" toml:"logging.watch" env:"LOGGING_WATCH"`
	LoggingRouter     string `help:"Router logging level" default:"info" toml:"logging.modules.router" env:"LOGGING_ROUTER"`
	LoggingPeripheral string `help:"Peripheral logging level" default:"info" toml:"logging.modules.peripheral" env:"LOGGING_PERIPHERAL"`
	LoggingLifecycle  string `help:"Lifecycle logging level" default:"info" toml:"logging.modules.lifecycle" env:"LOGGING_LIFECYCLE"`
	LoggingMetrics    string `help:"Metrics logging level" default:"info" toml:"logging.modules.metrics" env:"LOGGING_METRICS"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"router":     opts.LoggingRouter,
				"peripheral": opts.LoggingPeripheral,
				"lifecycle":  opts.LoggingLifecycle,
				"metrics":    opts.LoggingMetrics,
			},
		})
		logger := logging.GetLogger("main")

		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})

		hooks.OnStart(func() {
			defer close(stopped)
			logger.Info("Starting buttonhat", "version", version.Get().String(), "config", opts.Config)

			hw, bindings, err := cmd.OpenHardware(cmd.HardwareSettings{
				ConfigPath: opts.Config,
				Board:      opts.Board,
				DevRoot:    opts.DevRoot,
				Denoise:    parseDuration(logger, "buttons.denoise", opts.ButtonsDenoise, 0),
				Debounce:   parseDuration(logger, "buttons.debounce", opts.ButtonsDebounce, 20*time.Millisecond),
			}, logging.GetLogger("peripheral"))
			if err != nil {
				logger.Error("Failed to initialize hardware", "error", err)
				os.Exit(1)
			}

			eventBus := events.New()
			unsubMetrics := metrics.Subscribe(eventBus)
			defer unsubMetrics()

			if opts.MetricsTextfile != "" {
				exporter := metrics.NewTextfileExporter(opts.MetricsTextfile,
					parseDuration(logger, "metrics.interval", opts.MetricsInterval, 15*time.Second))
				if startErr := exporter.Start(ctx); startErr != nil {
					logger.Warn("Failed to start metrics exporter", "error", startErr)
				} else {
					defer exporter.Stop()
				}
			}

			if opts.LoggingWatch {
				if _, statErr := os.Stat(opts.Config); statErr == nil {
					watcher, watchErr := config.WatchLogging(opts.Config, logging.GetLogger("config"))
					if watchErr != nil {
						logger.Warn("Failed to watch config file", "error", watchErr)
					} else {
						defer watcher.Stop()
					}
				}
			}

			buttonOpts := []button.Option{
				button.WithPollInterval(parseDuration(logger, "buttons.poll_interval", opts.ButtonsPollInterval, 100*time.Millisecond)),
			}
			if opts.ButtonsActiveHigh {
				buttonOpts = append(buttonOpts, button.WithActiveHigh())
			}

			host := lifecycle.New(logging.GetLogger("lifecycle"))
			r := router.New(&router.Options{
				Manager:         hw,
				Bindings:        bindings,
				Sink:            host.Sink(),
				EventBus:        eventBus,
				Logger:          logging.GetLogger("router"),
				ButtonOptions:   buttonOpts,
				DiagnosticTable: opts.FeaturesUartTable,
			})

			if runErr := host.Run(ctx, r); runErr != nil {
				logger.Error("Event router stopped with error", "error", runErr)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			<-stopped
		})
	})

	root := cli.Root()
	root.Use = "buttonhat"
	root.Short = "Drive the LEDs, display and UART of a button HAT from its two keys"
	root.Version = version.Get().String()

	root.AddCommand(cmd.CreateUartsCmd())
	root.AddCommand(cmd.CreateSelftestCmd())
	root.AddCommand(cmd.CreateServiceCmd())
	root.AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}

// parseDuration parses a duration option, falling back with a warning.
func parseDuration(logger logging.Logger, name, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logger.Warn("Invalid duration, using default", "option", name, "value", value, "default", fallback)
		return fallback
	}
	return d
}
