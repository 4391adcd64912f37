package board

import (
	"os"
	"strings"

	"github.com/smazurov/buttonhat/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Detect picks bindings for the running board from the device tree model.
// Unknown boards get the Rainbow HAT layout; lines that do not exist there
// simply fail to open.
func Detect(logger logging.Logger) Bindings {
	return ForModel(detectModel(deviceTreeModelPath), logger)
}

// ForModel returns the bindings for a device tree model string.
func ForModel(model string, logger logging.Logger) Bindings {
	if logger != nil {
		logger.Info("Detecting board for pin bindings", "board_model", model)
	}

	switch {
	case strings.Contains(model, "NanoPC-T6"):
		if logger != nil {
			logger.Info("Detected NanoPC-T6, using on-board LEDs")
		}
		return NanoPCT6

	case strings.Contains(model, "Raspberry Pi"):
		if logger != nil {
			logger.Info("Detected Raspberry Pi, using Rainbow HAT bindings")
		}
		return RainbowHAT

	default:
		if logger != nil {
			logger.Info("Unknown board, falling back to Rainbow HAT bindings", "board_model", model)
		}
		return RainbowHAT
	}
}

// detectModel reads the device tree model to identify the board.
func detectModel(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}
