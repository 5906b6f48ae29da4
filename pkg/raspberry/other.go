//go:build !linux

package raspberry

// Open returns an emulated GPIO on systems without a gpiochip device; the
// daemon then runs against the simulated sensor.
func Open(_ string) (GPIO, error) {
	return NewEmulator(), nil
}
