package board

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestForModel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		model string
		want  string
	}{
		{"Raspberry Pi 4 Model B Rev 1.4", "rainbow-hat"},
		{"FriendlyElec NanoPC-T6", "nanopc-t6"},
		{"unknown", "rainbow-hat"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got := ForModel(tt.model, logger)
			if got.Name != tt.want {
				t.Errorf("ForModel(%q).Name = %q, want %q", tt.model, got.Name, tt.want)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("built-in bindings invalid: %v", err)
			}
		})
	}
}

func TestForModelNilLogger(t *testing.T) {
	if got := ForModel("Raspberry Pi 3", nil); got.Name != "rainbow-hat" {
		t.Errorf("ForModel() = %q", got.Name)
	}
}

func TestDetectModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model")
	if err := os.WriteFile(path, []byte("Raspberry Pi 4 Model B\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := detectModel(path); got != "Raspberry Pi 4 Model B" {
		t.Errorf("detectModel() = %q", got)
	}
	if got := detectModel(filepath.Join(t.TempDir(), "missing")); got != "unknown" {
		t.Errorf("detectModel(missing) = %q, want unknown", got)
	}
}

func TestValidate(t *testing.T) {
	b := RainbowHAT
	b.ButtonB = ""
	if err := b.Validate(); err == nil {
		t.Error("empty button_b should fail validation")
	}

	b = RainbowHAT
	b.DisplayAddr = 0x80
	if err := b.Validate(); err == nil {
		t.Error("display_addr outside 7 bits should fail validation")
	}
}

func TestUartAliases(t *testing.T) {
	aliases := RainbowHAT.UartAliases()
	if aliases["UART0"] != "/dev/serial0" {
		t.Errorf("UartAliases() = %v", aliases)
	}
	b := RainbowHAT
	b.UARTDevice = ""
	if b.UartAliases() != nil {
		t.Error("no device path should yield no aliases")
	}
}

func TestByName(t *testing.T) {
	if b, ok := ByName("nanopc-t6"); !ok || b.RedLED != NanoPCT6.RedLED {
		t.Errorf("ByName(nanopc-t6) = %+v, %v", b, ok)
	}
	if _, ok := ByName("pi-zero-hat"); ok {
		t.Error("ByName should not find an unknown board")
	}
}
