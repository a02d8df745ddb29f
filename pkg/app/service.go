package app

import (
	"context"
	"sync"
	"time"

	"github.com/womat/debug"

	"pulsedec/pkg/decoder"
	"pulsedec/pkg/mqtt"
)

// historySize is the number of frames served by /data.
const historySize = 16

// decode runs the decoding loop until the feed ends or ctx is cancelled.
// It closes app.done on return and app.shutdown if the feed came to an end.
func (app *App) decode(ctx context.Context, feed decoder.Feed) {
	defer close(app.done)

	debug.InfoLog.Printf("start decoding %v frames", app.protocol)
	err := decoder.Run(ctx, feed, app.decoder, app)
	switch {
	case err == nil:
		debug.InfoLog.Print("input feed ended")
	case ctx.Err() != nil:
		debug.DebugLog.Printf("decoding stopped: %v", err)
		return
	default:
		debug.ErrorLog.Printf("decoding stopped: %v", err)
	}

	close(app.shutdown)
}

// HandleFrame saves the frame to the history, counts it and sends it to the mqtt broker.
func (app *App) HandleFrame(f decoder.Frame) {
	debug.DebugLog.Printf("frame %v: %v %q (%v bits)", f.ID, f.Outcome, f.Text, f.BitCount)
	debug.TraceLog.Printf("frame %v bits: %v", f.ID, f.Bits)

	app.frames.add(f)
	app.metrics.ObserveFrame(f)
	app.sendMQTT(app.config.MQTT.Topic, f)
}

// HandleError counts and logs a decoding error; decoding continues.
func (app *App) HandleError(err error) {
	debug.ErrorLog.Printf("decoding error: %v", err)

	app.metrics.ObserveError(err)

	app.lastError.Lock()
	app.lastError.err = err
	app.lastError.time = time.Now()
	app.lastError.Unlock()
}

// sendMQTT sends the frame as json message to the mqtt broker.
func (app *App) sendMQTT(topic string, f decoder.Frame) {
	if topic == "" {
		return
	}

	msg, err := mqtt.NewMessage(topic, f)
	if err != nil {
		debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
		return
	}

	debug.TraceLog.Printf("prepare mqtt message %v %s", msg.Topic, msg.Payload)
	app.mqtt.C <- msg
}

// history is a bounded list of the last decoded frames, newest last.
type history struct {
	sync.RWMutex
	size   int
	frames []decoder.Frame
}

func newHistory(size int) *history {
	return &history{size: size, frames: make([]decoder.Frame, 0, size)}
}

func (h *history) add(f decoder.Frame) {
	h.Lock()
	defer h.Unlock()

	if len(h.frames) == h.size {
		copy(h.frames, h.frames[1:])
		h.frames = h.frames[:h.size-1]
	}
	h.frames = append(h.frames, f)
}

// list returns a copy of the saved frames.
func (h *history) list() []decoder.Frame {
	h.RLock()
	defer h.RUnlock()

	return append([]decoder.Frame(nil), h.frames...)
}
