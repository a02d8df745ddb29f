package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/womat/debug"

	"pulsedec/pkg/app/config"
	"pulsedec/pkg/assembler"
	"pulsedec/pkg/clock"
	"pulsedec/pkg/decoder"
	"pulsedec/pkg/source"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

func newTestApp(t *testing.T, protocol decoder.Protocol) *App {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Protocol = string(protocol)
	cfg.Sync.Shift = 0
	cfg.MQTT.Topic = ""

	a, err := New(cfg)
	require.NoError(t, err)
	a.initDefaultRoutes()
	return a
}

// symbols returns the oversampled symbol stream of a sync frame carrying payload.
func symbols(payload []byte, n int) string {
	var sb strings.Builder
	sb.WriteString("10101010")
	for _, b := range append([]byte{byte(len(payload))}, payload...) {
		s := strconv.FormatUint(uint64(b), 2)
		sb.WriteString(strings.Repeat("0", 8-len(s)) + s)
	}

	var out strings.Builder
	for _, c := range sb.String() {
		out.WriteString(strings.Repeat(string(c), n))
	}
	return out.String()
}

func get(t *testing.T, a *App, target string) (int, []byte) {
	t.Helper()

	resp, err := a.web.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Protocol = "morse"
	_, err := New(cfg)
	assert.ErrorIs(t, err, decoder.ErrUnknownProtocol)

	cfg = config.NewConfig()
	cfg.Sync.Pattern = "1010"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestDecodeSyncStream(t *testing.T) {
	a := newTestApp(t, decoder.ProtocolSync)

	in := symbols([]byte("HOLA"), 4) + symbols([]byte("OK"), 4)
	a.decode(context.Background(), source.NewChunkFeed(strings.NewReader(in), 13))

	select {
	case <-a.Shutdown():
	default:
		t.Fatal("shutdown isn't signaled at the end of the feed")
	}

	status, body := get(t, a, "/data")
	require.Equal(t, http.StatusOK, status)

	var frames []decoder.Frame
	require.NoError(t, json.Unmarshal(body, &frames))
	require.Len(t, frames, 2)
	assert.Equal(t, "HOLA", frames[0].Text)
	assert.Equal(t, "OK", frames[1].Text)
	assert.Equal(t, assembler.OutcomeText, frames[1].Outcome)

	_, body = get(t, a, "/data?last=1")
	require.NoError(t, json.Unmarshal(body, &frames))
	require.Len(t, frames, 1)
	assert.Equal(t, "OK", frames[0].Text)

	status, _ = get(t, a, "/data?last=x")
	assert.Equal(t, http.StatusBadRequest, status)

	_, body = get(t, a, "/stats")
	var s stats
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Equal(t, decoder.ProtocolSync, s.Protocol)
	assert.EqualValues(t, 2, s.Frames)
	assert.Zero(t, s.Errors)
	assert.Empty(t, s.LastError)
}

func TestDecodeCancelled(t *testing.T) {
	a := newTestApp(t, decoder.ProtocolManchester)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.decode(ctx, source.NewLineFeed(strings.NewReader("5000\n")))

	<-a.done
	select {
	case <-a.Shutdown():
		t.Fatal("shutdown is signaled on cancellation")
	default:
	}
}

func TestHandleError(t *testing.T) {
	a := newTestApp(t, decoder.ProtocolManchester)

	a.HandleError(clock.ErrNoPulseDetected)

	_, body := get(t, a, "/stats")
	var s stats
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Equal(t, clock.ErrNoPulseDetected.Error(), s.LastError)
	assert.NotNil(t, s.ErrorTime)

	_, body = get(t, a, "/metrics")
	assert.Contains(t, string(body), `pulsedec_decode_errors_total{protocol="manchester",reason="no_pulse"} 1`)
}

func TestHistoryIsBounded(t *testing.T) {
	h := newHistory(3)
	for i := 0; i < 5; i++ {
		h.add(decoder.Frame{BitCount: i})
	}

	frames := h.list()
	require.Len(t, frames, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{frames[0].BitCount, frames[1].BitCount, frames[2].BitCount})

	frames[0].BitCount = 99
	assert.Equal(t, 2, h.list()[0].BitCount)
}

func TestVersionAndHealth(t *testing.T) {
	a := newTestApp(t, decoder.ProtocolManchester)

	status, body := get(t, a, "/version")
	require.Equal(t, http.StatusOK, status)

	var v map[string]string
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, MODULE, v["description"])
	assert.Equal(t, VERSION, v["version"])
	assert.Equal(t, "manchester", v["protocol"])

	status, body = get(t, a, "/health")
	require.Equal(t, http.StatusOK, status)
	var h struct {
		Protocol string
		Decoding bool
	}
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, "manchester", h.Protocol)
	assert.False(t, h.Decoding)
}

func TestDisabledWebservice(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Webserver.Webservices = map[string]bool{"version": true}
	a, err := New(cfg)
	require.NoError(t, err)
	a.initDefaultRoutes()

	status, _ := get(t, a, "/data")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCloseWithoutRun(t *testing.T) {
	a := newTestApp(t, decoder.ProtocolManchester)
	assert.NoError(t, a.Close())
}
