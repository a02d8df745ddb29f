package app

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"github.com/womat/debug"

	"pulsedec/pkg/decoder"
)

// stats is the response of /stats.
type stats struct {
	Protocol  decoder.Protocol `json:"protocol"`
	Units     uint64           `json:"units"`
	Malformed uint64           `json:"malformed"`
	Captures  uint64           `json:"captures"`
	Frames    uint64           `json:"frames"`
	Errors    uint64           `json:"errors"`
	LastError string           `json:"lastError,omitempty"`
	ErrorTime *time.Time       `json:"errorTime,omitempty"`
}

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleData returns the last decoded frames, newest last.
// The query parameter last limits the number of frames, e.g. /data?last=1
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		frames := app.frames.list()
		if s := ctx.Query("last"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid parameter last: "+s)
			}
			if n < len(frames) {
				frames = frames[len(frames)-n:]
			}
		}

		return ctx.JSON(frames)
	}
}

// HandleStats returns the decoder counters.
func (app *App) HandleStats() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request stats")

		c := app.decoder.Counters()
		s := stats{
			Protocol:  app.protocol,
			Units:     c.Units.Load(),
			Malformed: c.Malformed.Load(),
			Captures:  c.Captures.Load(),
			Frames:    c.Frames.Load(),
			Errors:    c.Errors.Load(),
		}

		app.lastError.Lock()
		if app.lastError.err != nil {
			t := app.lastError.time
			s.LastError = app.lastError.err.Error()
			s.ErrorTime = &t
		}
		app.lastError.Unlock()

		return ctx.JSON(s)
	}
}

// HandleMetrics serves the prometheus metrics.
func (app *App) HandleMetrics() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(app.metrics.Handler())

	return func(ctx *fiber.Ctx) error {
		h(ctx.Context())
		return nil
	}
}
