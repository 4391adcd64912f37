package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/buttonhat/internal/button"
	"github.com/smazurov/buttonhat/internal/config"
	"github.com/smazurov/buttonhat/internal/logging"
	"github.com/smazurov/buttonhat/internal/router"
	"github.com/smazurov/buttonhat/internal/systemd"
)

var errSelftestFailed = errors.New("selftest failed")

// CreateSelftestCmd creates the selftest command.
func CreateSelftestCmd() *cobra.Command {
	var (
		settings  HardwareSettings
		hold      time.Duration
		uartTable bool
		logJSON   bool
		pause     bool
		unit      string
	)

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Exercise the HAT peripherals once",
		Long: `Opens every peripheral through the event router, presses and releases key A then key B ` +
			`in software, and tears everything down. Exits non-zero if either LED could not be driven.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loggingConfig := config.LoadLoggingConfig(settings.ConfigPath)
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("selftest")

			if pause {
				resume, err := pauseService(cmd.Context(), unit, logger)
				if err != nil {
					return err
				}
				defer resume()
			}

			hw, bindings, err := OpenHardware(settings, logger)
			if err != nil {
				return err
			}

			r := router.New(&router.Options{
				Manager:         hw,
				Bindings:        bindings,
				Logger:          logging.GetLogger("router"),
				DiagnosticTable: uartTable,
			})
			return runSelftest(cmd.OutOrStdout(), r, hold)
		},
	}

	cmd.Flags().StringVarP(&settings.ConfigPath, "config", "c", "buttonhat.toml", "Path to configuration file")
	cmd.Flags().StringVar(&settings.Board, "board", BoardAuto, "Board bindings (auto, rainbow-hat, nanopc-t6)")
	cmd.Flags().StringVar(&settings.DevRoot, "dev-root", "/dev", "Directory holding tty devices")
	cmd.Flags().DurationVar(&hold, "hold", 500*time.Millisecond, "How long each key is held down")
	cmd.Flags().BoolVar(&uartTable, "uart-table", true, "Write the diagnostic table to the UART on key B")
	cmd.Flags().BoolVar(&logJSON, "json", false, "Output logs in JSON format")
	cmd.Flags().BoolVar(&pause, "stop-service", false, "Stop the running service for the test and start it again afterwards")
	cmd.Flags().StringVar(&unit, "unit", systemd.DefaultUnit, "Unit stopped by --stop-service")
	return cmd
}

// pauseService stops the unit if it is active so its lines are free. The
// returned function starts it again.
func pauseService(ctx context.Context, unit string, logger *slog.Logger) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	m, err := systemd.NewManager(ctx, unit, false)
	if err != nil {
		return nil, err
	}
	state, err := m.Status(ctx)
	if err != nil || state != "active" {
		m.Close()
		logger.Info("Service not running, nothing to stop", "unit", unit, "state", state)
		return func() {}, nil
	}
	if err := m.Stop(ctx); err != nil {
		m.Close()
		return nil, err
	}
	logger.Info("Service stopped for selftest", "unit", unit)

	return func() {
		defer m.Close()
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		if err := m.Start(ctx); err != nil {
			logger.Error("Failed to restart service after selftest", "unit", unit, "error", err)
			return
		}
		logger.Info("Service started again", "unit", unit)
	}, nil
}

// selfTestRouter is the part of the router the selftest drives.
type selfTestRouter interface {
	OnCreate()
	OnKeyDown(key button.Key) bool
	OnKeyUp(key button.Key) bool
	OnDestroy()
	Peripherals() []router.PeripheralStatus
	LEDValue(key button.Key) (on, bound bool)
}

func runSelftest(out io.Writer, r selfTestRouter, hold time.Duration) error {
	r.OnCreate()

	fmt.Fprintln(out, "Peripherals:")
	for _, p := range r.Peripherals() {
		state := "absent"
		if p.Present {
			state = "ok"
		}
		fmt.Fprintf(out, "  %-10s %-14s %s\n", p.Role, p.Name, state)
	}

	failed := false
	fmt.Fprintln(out, "Keys:")
	for _, key := range []button.Key{button.KeyA, button.KeyB} {
		down := r.OnKeyDown(key)
		litDown, _ := r.LEDValue(key)
		time.Sleep(hold)
		up := r.OnKeyUp(key)
		litUp, _ := r.LEDValue(key)
		fmt.Fprintf(out, "  %s down=%s up=%s led=%s/%s\n", key, result(down), result(up), onOff(litDown), onOff(litUp))
		failed = failed || !down || !up || !litDown || litUp
	}

	r.OnDestroy()

	if failed {
		return errSelftestFailed
	}
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
