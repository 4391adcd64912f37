package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/buttonhat/internal/board"
)

// LoadBindings overlays the [board] table of configPath onto base. Keys
// absent from the file keep their base value. A missing file returns base.
func LoadBindings(configPath string, base board.Bindings) (board.Bindings, error) {
	if configPath == "" {
		return base, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, err
	}

	raw := struct {
		Board board.Bindings `toml:"board"`
	}{Board: base}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return base, fmt.Errorf("failed to parse [board] in %s: %w", configPath, err)
	}
	if err := raw.Board.Validate(); err != nil {
		return base, err
	}
	return raw.Board, nil
}
