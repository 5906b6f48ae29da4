package app

import (
	"sonard/pkg/hcsr04"
	"sonard/pkg/port"
	"sonard/pkg/raspberry"
)

// simulateSensor answers trigger pulses on the emulated gpio with a synthetic
// echo from a reflector at the configured distance, so the whole pipeline
// runs on machines without the sensor.
func (app *App) simulateSensor(emu *raspberry.Emulator) {
	trig := emu.Pin(app.config.Sensor.TriggerPin)
	echo := emu.Line(app.config.Sensor.EchoPin)
	roundTrip := hcsr04.RoundTrip(app.config.Sensor.EmuDistanceCM)

	trig.Watch(func(level bool) {
		// the burst fires when the trigger pulse ends
		if level {
			return
		}

		ts := emu.Now()
		echo.EdgeAt(port.RisingEdge, ts)
		echo.EdgeAt(port.FallingEdge, ts+roundTrip)
	})
}
