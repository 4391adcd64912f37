// Package cmd holds the buttonhat subcommands and the hardware setup they
// share with the daemon.
package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/buttonhat/internal/board"
	"github.com/smazurov/buttonhat/internal/config"
	"github.com/smazurov/buttonhat/internal/peripheral"
)

// BoardAuto picks bindings from the device tree model.
const BoardAuto = "auto"

// HardwareSettings selects the board bindings and tunes the input filter.
type HardwareSettings struct {
	ConfigPath string
	Board      string
	DevRoot    string
	Denoise    time.Duration
	Debounce   time.Duration
}

// ResolveBindings returns the preset named by s.Board, or the detected one
// for BoardAuto, overlaid with the [board] table of the config file.
func ResolveBindings(s HardwareSettings, logger *slog.Logger) (board.Bindings, error) {
	var base board.Bindings
	switch s.Board {
	case "", BoardAuto:
		base = board.Detect(logger)
	default:
		b, ok := board.ByName(s.Board)
		if !ok {
			return board.Bindings{}, fmt.Errorf("unknown board %q (want %s, %s or %s)",
				s.Board, BoardAuto, board.RainbowHAT.Name, board.NanoPCT6.Name)
		}
		base = b
	}
	return config.LoadBindings(s.ConfigPath, base)
}

// OpenHardware resolves the bindings and loads the periph.io host drivers.
func OpenHardware(s HardwareSettings, logger *slog.Logger) (*peripheral.Hardware, board.Bindings, error) {
	bindings, err := ResolveBindings(s, logger)
	if err != nil {
		return nil, board.Bindings{}, err
	}
	logger.Info("Using board bindings",
		"board", bindings.Name,
		"led_red", bindings.RedLED,
		"led_green", bindings.GreenLED,
		"button_a", bindings.ButtonA,
		"button_b", bindings.ButtonB,
		"uart", bindings.UART,
		"display_bus", bindings.DisplayBus)

	hw, err := peripheral.NewHardware(peripheral.HardwareOptions{
		Denoise:     s.Denoise,
		Debounce:    s.Debounce,
		UartAliases: bindings.UartAliases(),
		DevRoot:     s.DevRoot,
		Logger:      logger,
	})
	if err != nil {
		return nil, board.Bindings{}, err
	}
	return hw, bindings, nil
}
