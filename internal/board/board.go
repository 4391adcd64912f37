// Package board holds the fixed pin bindings of the supported HATs.
package board

import "fmt"

// Bindings names every line the router opens. The key to LED mapping is
// fixed: button A drives the red LED, button B the green one.
type Bindings struct {
	Name        string `toml:"name"`
	RedLED      string `toml:"led_red"`
	GreenLED    string `toml:"led_green"`
	ButtonA     string `toml:"button_a"`
	ButtonB     string `toml:"button_b"`
	UART        string `toml:"uart"`
	UARTDevice  string `toml:"uart_device"`
	DisplayBus  string `toml:"display_bus"`
	DisplayAddr uint16 `toml:"display_addr"`
}

// RainbowHAT is the Pimoroni Rainbow HAT on a Raspberry Pi header, BCM
// numbering.
var RainbowHAT = Bindings{
	Name:        "rainbow-hat",
	RedLED:      "GPIO6",
	GreenLED:    "GPIO19",
	ButtonA:     "GPIO21",
	ButtonB:     "GPIO20",
	UART:        "UART0",
	UARTDevice:  "/dev/serial0",
	DisplayBus:  "1",
	DisplayAddr: 0x70,
}

// NanoPCT6 uses the on-board user and system LEDs through the kernel LED
// class and the Rainbow HAT buttons on the 40-pin header.
var NanoPCT6 = Bindings{
	Name:        "nanopc-t6",
	RedLED:      "led:usr_led",
	GreenLED:    "led:sys_led",
	ButtonA:     "GPIO21",
	ButtonB:     "GPIO20",
	UART:        "UART0",
	UARTDevice:  "/dev/ttyS0",
	DisplayBus:  "",
	DisplayAddr: 0x70,
}

// ByName returns the built-in bindings called name.
func ByName(name string) (Bindings, bool) {
	for _, b := range []Bindings{RainbowHAT, NanoPCT6} {
		if b.Name == name {
			return b, true
		}
	}
	return Bindings{}, false
}

// Validate checks that every required line has a name.
func (b Bindings) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"led_red", b.RedLED},
		{"led_green", b.GreenLED},
		{"button_a", b.ButtonA},
		{"button_b", b.ButtonB},
		{"uart", b.UART},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("board binding %s is empty", r.field)
		}
	}
	if b.DisplayAddr == 0 || b.DisplayAddr > 0x7F {
		return fmt.Errorf("board binding display_addr %#x is not a 7-bit I2C address", b.DisplayAddr)
	}
	return nil
}

// UartAliases maps the logical UART name to its device path.
func (b Bindings) UartAliases() map[string]string {
	if b.UARTDevice == "" {
		return nil
	}
	return map[string]string{b.UART: b.UARTDevice}
}
