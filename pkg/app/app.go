package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"pulsedec/pkg/app/config"
	"pulsedec/pkg/decoder"
	"pulsedec/pkg/metrics"
	"pulsedec/pkg/mqtt"
	"pulsedec/pkg/source"
)

// closeTimeout bounds the wait for the decoding loop on Close.
const closeTimeout = 2 * time.Second

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

	// protocol is the line protocol of decoder
	protocol decoder.Protocol
	decoder  decoder.FrameDecoder
	metrics  *metrics.Metrics

	// input is the opened signal source
	input io.ReadCloser

	// frames holds the last decoded frames
	frames *history

	// lastError is the last decoding error, if any
	lastError struct {
		sync.Mutex
		err  error
		time time.Time
	}

	cancel context.CancelFunc
	// started is set by Run before the decoding loop starts
	started bool
	// done is closed when the decoding loop returns
	done chan struct{}
	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New checks the Web server URL, builds the decoder and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	p, mc, sc, err := config.Decoder()
	if err != nil {
		debug.ErrorLog.Printf("invalid decoder configuration: %v", err)
		return &App{}, err
	}

	dec, err := decoder.New(p, mc, sc)
	if err != nil {
		debug.ErrorLog.Printf("can't create %v decoder: %v", p, err)
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:  fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt: mqtt.New(),

		protocol: p,
		decoder:  dec,
		metrics:  metrics.New(p, dec.Counters()),
		frames:   newHistory(historySize),

		done:     make(chan struct{}),
		shutdown: make(chan struct{}),
	}, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.started = true

	go app.mqtt.Service()
	go app.runWebServer()
	go app.decode(ctx, app.feed())

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if app.input, err = source.Open(app.config.Input); err != nil {
		debug.ErrorLog.Printf("can't open %v input: %v", app.config.Input.Kind, err)
		return err
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initDefaultRoutes should be always called last because it may access things like app.metrics
	// which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// feed returns the feed matching the protocol: lines of samples or chunks of symbols.
func (app *App) feed() decoder.Feed {
	if app.protocol == decoder.ProtocolSync {
		return source.NewChunkFeed(app.input, app.config.Input.ChunkSize)
	}
	return source.NewLineFeed(app.input)
}

// Shutdown returns the read only shutdown channel.
// Shutdown is closed when the input feed ends. (see cmd/pulsedec.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close stops decoding and releases the input and the mqtt connection.
func (app *App) Close() error {
	var err error
	if app.input != nil {
		if app.cancel != nil {
			app.cancel()
		}
		if err = app.input.Close(); err != nil {
			debug.ErrorLog.Printf("closing input: %v", err)
		}
		app.input = nil
	}

	if app.cancel == nil {
		// not running
		return err
	}

	select {
	case <-app.done:
	case <-time.After(closeTimeout):
		// the decoding loop may still publish, the mqtt channel must stay open
		return fmt.Errorf("decoding loop didn't stop within %v", closeTimeout)
	}

	app.cancel = nil
	_ = app.mqtt.Disconnect()
	_ = app.web.Shutdown()
	return err
}
