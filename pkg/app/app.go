package app

import (
	"fmt"
	"net/url"
	"os"
	"sync"

	"sonard/pkg/app/config"
	"sonard/pkg/display"
	"sonard/pkg/hcsr04"
	"sonard/pkg/mqtt"
	"sonard/pkg/raspberry"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// gpio is the gpio capability of the board. Tests inject an emulator
	// before init; otherwise the platform chip is opened.
	gpio raspberry.GPIO

	// trig drives the TRIG input of the sensor
	trig raspberry.OutputPin
	// echo watches the ECHO output of the sensor
	echo raspberry.EventLine

	// sensor paces the measurement cycles and correlates the echo edges
	sensor *hcsr04.Handler

	// display receives one render request per measurement cycle
	display display.Renderer

	// measurement is the outcome of the last measurement cycle,
	// read by the web handlers
	measurement struct {
		sync.Mutex
		data Measurement
	}

	// mqttData is the last measurement published to the broker,
	// the reference for the publish gating
	mqttData struct {
		sync.Mutex
		data Measurement
	}
}

// New checks the Web server URL and initialize the main app structure
func New(cfg *config.Config) (*App, error) {
	u, err := url.Parse(cfg.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", cfg.Webserver.URL, err.Error())
		return &App{}, err
	}

	app := &App{
		config:    cfg,
		urlParsed: u,

		web:  fiber.New(),
		mqtt: mqtt.New(),
	}

	switch cfg.Display.Driver {
	case "console":
		app.display = display.NewConsole(os.Stdout)
	case "none":
		app.display = display.Discard{}
	default:
		err = fmt.Errorf("unknown display driver %q", cfg.Display.Driver)
		debug.ErrorLog.Print(err)
		return &App{}, err
	}

	return app, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.measure()

	return nil
}

// init acquires the gpio lines, starts the sensor handler and connects the
// broker. Failing here is the only fatal path of the daemon; once the loops
// run, every error is absorbed into a render request.
func (app *App) init() (err error) {
	if app.gpio == nil {
		if app.gpio, err = raspberry.Open(app.config.Sensor.Chip); err != nil {
			debug.ErrorLog.Printf("can't open gpio: %v", err)
			return err
		}
	}

	if app.trig, err = app.gpio.OutputPin(app.config.Sensor.TriggerPin); err != nil {
		debug.ErrorLog.Printf("can't open trigger pin: %v", err)
		return err
	}

	if app.echo, err = app.gpio.EventLine(app.config.Sensor.EchoPin, app.config.Sensor.Terminator); err != nil {
		debug.ErrorLog.Printf("can't open echo line: %v", err)
		return err
	}

	// without a gpiochip a simulated reflector answers the trigger pulses
	if emu, ok := app.gpio.(*raspberry.Emulator); ok {
		debug.InfoLog.Print("no gpiochip, running against the simulated sensor")
		app.simulateSensor(emu)
	}

	app.display.Status("Starting...")

	app.sensor = hcsr04.New(app.trig, app.echo.Events(), app.config.Sensor.Period)

	if err = app.mqtt.Connect(app.config.MQTT.Connection, MODULE); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initRoutes and initDefaultRoutes should be always called last because it may access things like app.api
	// which must be initialized before in initAPI()
	app.initDefaultRoutes()

	return nil
}

func (app *App) Close() error {
	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	if app.sensor != nil {
		_ = app.sensor.Close()
	}

	if app.echo != nil {
		_ = app.echo.Close()
	}

	if app.trig != nil {
		_ = app.trig.Close()
	}

	if app.gpio != nil {
		_ = app.gpio.Close()
	}

	return nil
}
