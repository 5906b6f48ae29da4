package app

import (
	"encoding/json"
	"math"
	"time"

	"sonard/pkg/mqtt"

	"github.com/womat/debug"
)

// Outcome classifies one measurement cycle. Every consumed cycle yields
// exactly one outcome.
type Outcome int

const (
	_ Outcome = iota
	// Valid is a distance within the rated range of the sensor.
	Valid
	// OutOfRange is an echo from beyond the rated range, an invalid
	// measurement rather than a real distance.
	OutOfRange
	// SensorTimeout means no echo arrived within the cycle's wait window.
	SensorTimeout
)

// render texts of the two failure outcomes; distinct, so the operator can
// tell silence from an invalid echo
const (
	sensorFailedText  = "Sensor Failed"
	measureFailedText = "Measurement Failed"
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case OutOfRange:
		return "out of range"
	case SensorTimeout:
		return "sensor timeout"
	}

	return "unknown"
}

// MarshalJSON writes the text form into the /data and mqtt payloads.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// Measurement is the result of one measurement cycle. DistanceCM is only
// meaningful for the Valid and OutOfRange outcomes.
type Measurement struct {
	TimeStamp  time.Time
	DistanceCM float64
	Outcome    Outcome
}

// measure waits in an endless loop for measurement cycles.
// Each cycle is classified, rendered, saved to the app main structure and
// offered to the mqtt publish gate.
func (app *App) measure() {
	for {
		select {
		case _, open := <-app.sensor.Cycle:
			if !open {
				return
			}
		case <-time.After(app.config.Sensor.SignalTimeout):
			// a stalled pacer is not a sensor failure, nothing to render
			continue
		}

		var m Measurement

		select {
		case cm, open := <-app.sensor.C:
			if !open {
				return
			}

			m = app.classify(cm)
		case <-time.After(app.config.Sensor.ValueTimeout):
			m = Measurement{TimeStamp: time.Now(), Outcome: SensorTimeout}
		}

		app.render(m)

		app.measurement.Lock()
		app.measurement.data = m
		app.measurement.Unlock()

		app.publishMeasurement(m)
	}
}

// classify grades a measured distance against the rated range of the sensor.
func (app *App) classify(cm float64) Measurement {
	m := Measurement{TimeStamp: time.Now(), DistanceCM: cm, Outcome: Valid}
	if cm > app.config.Sensor.MaxRangeCM {
		m.Outcome = OutOfRange
	}

	return m
}

// render turns a measurement into its render request.
func (app *App) render(m Measurement) {
	switch m.Outcome {
	case Valid:
		debug.DebugLog.Printf("distance %.2f cm", m.DistanceCM)
		app.display.Distance(m.DistanceCM, app.barLength(m.DistanceCM))
	case OutOfRange:
		debug.DebugLog.Printf("distance %.2f cm exceeds the sensor range", m.DistanceCM)
		app.display.Failure(measureFailedText)
	case SensorTimeout:
		debug.DebugLog.Print("no echo within the cycle's wait window")
		app.display.Failure(sensorFailedText)
	}
}

// barLength is the length of the proportional bar in pixels: the distance
// value itself, clamped to the display width.
func (app *App) barLength(cm float64) int {
	bar := int(cm)
	if bar > app.config.Display.WidthPX {
		bar = app.config.Display.WidthPX
	}

	return bar
}

// publishMeasurement sends a measurement to the mqtt broker if the outcome
// changed, the distance moved by at least the configured delta or the
// configured interval elapsed since the last published measurement.
func (app *App) publishMeasurement(m Measurement) {
	if app.config.MQTT.Connection == "" {
		return
	}

	app.mqttData.Lock()
	defer app.mqttData.Unlock()

	last := app.mqttData.data
	if m.Outcome == last.Outcome &&
		math.Abs(m.DistanceCM-last.DistanceCM) < app.config.MQTT.DeltaCM &&
		m.TimeStamp.Sub(last.TimeStamp) < app.config.MQTT.Interval {
		return
	}

	app.sendMQTT(app.config.MQTT.Topic, m)
	app.mqttData.data = m
}

// sendMQTT send message struct to the mqtt broker.
func (app *App) sendMQTT(topic string, message interface{}) {
	go func(t string, r interface{}) {
		debug.TraceLog.Printf("prepare mqtt message %v %v", t, r)

		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			return
		}

		app.mqtt.C <- mqtt.Message{
			Qos:      0,
			Retained: true,
			Topic:    t,
			Payload:  b,
		}
	}(topic, message)
}
