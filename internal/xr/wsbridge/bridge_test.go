package wsbridge

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splatviewer/internal/metrics"
	"splatviewer/internal/xr"
)

type recordingHandler struct {
	started, ended int
	errs           []error
	frames         []xr.Frame
}

func (h *recordingHandler) XRStarted()          { h.started++ }
func (h *recordingHandler) XREnded()            { h.ended++ }
func (h *recordingHandler) XRError(err error)   { h.errs = append(h.errs, err) }
func (h *recordingHandler) XRUpdate(f xr.Frame) { h.frames = append(h.frames, f) }

func dial(t *testing.T, dev *Device) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(dev)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, dev.Connected, time.Second, 5*time.Millisecond)
	return conn
}

func pollUntil(t *testing.T, dev *Device, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		dev.Poll()
		return cond()
	}, time.Second, 5*time.Millisecond)
}

func readMsg(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var m message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestStartWithoutClientFails(t *testing.T) {
	dev := New(zerolog.Nop())
	h := &recordingHandler{}
	dev.SetHandler(h)

	dev.Start(xr.ModeAR, xr.SpaceLocalFloor, xr.Options{})
	assert.Zero(t, h.ended, "failure is delivered on Poll")
	dev.Poll()

	require.Len(t, h.errs, 1)
	assert.Equal(t, 1, h.ended)
	assert.Zero(t, h.started)
	assert.False(t, dev.Active())
}

func TestSessionRoundTrip(t *testing.T) {
	poses := testutil.ToFloat64(metrics.BridgeMessages.WithLabelValues("in", msgPose))
	dev := New(zerolog.Nop())
	h := &recordingHandler{}
	dev.SetHandler(h)
	conn := dial(t, dev)
	assert.NotEmpty(t, dev.ClientID())

	require.NoError(t, conn.WriteJSON(message{Type: msgHello, Capabilities: &capsMsg{HitTest: true}}))
	pollUntil(t, dev, func() bool { return dev.Capabilities().HitTest != nil })
	assert.Nil(t, dev.Capabilities().LightEstimation)

	dev.Start(xr.ModeAR, xr.SpaceLocalFloor, xr.Options{RequiredFeatures: []xr.Feature{xr.FeatureHitTest}})
	start := readMsg(t, conn)
	assert.Equal(t, msgStart, start.Type)
	assert.Equal(t, "immersive-ar", start.Mode)
	assert.Equal(t, "local-floor", start.Space)
	assert.Equal(t, []string{"hit-test"}, start.Required)

	require.NoError(t, conn.WriteJSON(message{Type: msgStarted}))
	pollUntil(t, dev, func() bool { return h.started == 1 })
	assert.True(t, dev.Active())

	require.NoError(t, conn.WriteJSON(message{
		Type:     msgPose,
		Position: &[3]float64{1, 2, 3},
		Rotation: &[4]float64{0, 0, 0, 1},
	}))
	pollUntil(t, dev, func() bool { return len(h.frames) == 1 })
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, h.frames[0].Position)
	assert.InDelta(t, 1, h.frames[0].Rotation.W, 1e-12)
	assert.Equal(t, poses+1, testutil.ToFloat64(metrics.BridgeMessages.WithLabelValues("in", msgPose)))

	dev.End()
	assert.Equal(t, msgEnd, readMsg(t, conn).Type)
	require.NoError(t, conn.WriteJSON(message{Type: msgEnded}))
	pollUntil(t, dev, func() bool { return h.ended == 1 })
	assert.False(t, dev.Active())
}

func TestHitTestSource(t *testing.T) {
	dev := New(zerolog.Nop())
	h := &recordingHandler{}
	dev.SetHandler(h)
	conn := dial(t, dev)
	require.NoError(t, conn.WriteJSON(message{Type: msgHello, Capabilities: &capsMsg{HitTest: true}}))
	require.NoError(t, conn.WriteJSON(message{Type: msgStarted}))
	pollUntil(t, dev, func() bool { return h.started == 1 })

	var got xr.HitTestSource
	var gotErr error
	calls := 0
	dev.Capabilities().HitTest.Start(xr.SpaceViewer, func(src xr.HitTestSource, err error) {
		calls++
		got, gotErr = src, err
	})
	req := readMsg(t, conn)
	assert.Equal(t, msgHitTestStart, req.Type)
	assert.Equal(t, "viewer", req.Space)

	require.NoError(t, conn.WriteJSON(message{Type: msgHitTestStarted, Source: req.Source}))
	pollUntil(t, dev, func() bool { return calls == 1 })
	require.NoError(t, gotErr)
	require.NotNil(t, got)

	var hits []mgl64.Vec3
	notFound := 0
	got.OnResult(func(p mgl64.Vec3, _ mgl64.Quat) { hits = append(hits, p) })
	got.OnNotFound(func() { notFound++ })

	require.NoError(t, conn.WriteJSON(message{Type: msgHit, Source: req.Source, Position: &[3]float64{0, 0, -1}}))
	require.NoError(t, conn.WriteJSON(message{Type: msgHitNotFound, Source: req.Source}))
	pollUntil(t, dev, func() bool { return len(hits) == 1 && notFound == 1 })

	require.NoError(t, got.Stop())
	assert.Equal(t, msgHitTestStop, readMsg(t, conn).Type)
	assert.True(t, errors.Is(got.Stop(), xr.ErrSourceStopped))
}

func TestHitTestFailure(t *testing.T) {
	dev := New(zerolog.Nop())
	conn := dial(t, dev)
	require.NoError(t, conn.WriteJSON(message{Type: msgHello, Capabilities: &capsMsg{HitTest: true}}))
	pollUntil(t, dev, func() bool { return dev.Capabilities().HitTest != nil })

	var gotErr error
	dev.Capabilities().HitTest.Start(xr.SpaceViewer, func(_ xr.HitTestSource, err error) { gotErr = err })
	req := readMsg(t, conn)
	require.NoError(t, conn.WriteJSON(message{Type: msgHitTestFailed, Source: req.Source, Error: "unsupported"}))
	pollUntil(t, dev, func() bool { return gotErr != nil })
	assert.Contains(t, gotErr.Error(), "unsupported")
}

func TestDisconnectEndsSession(t *testing.T) {
	dev := New(zerolog.Nop())
	h := &recordingHandler{}
	dev.SetHandler(h)
	conn := dial(t, dev)
	require.NoError(t, conn.WriteJSON(message{Type: msgStarted}))
	pollUntil(t, dev, func() bool { return h.started == 1 })

	conn.Close()
	pollUntil(t, dev, func() bool { return h.ended == 1 })
	assert.False(t, dev.Active())
	assert.False(t, dev.Connected())
	require.NotEmpty(t, h.errs)
	assert.ErrorIs(t, h.errs[0], ErrNoClient)
}

func TestSecondClientRefused(t *testing.T) {
	dev := New(zerolog.Nop())
	srv := httptest.NewServer(dev)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, dev.Connected, time.Second, 5*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMetricTypeBoundsLabels(t *testing.T) {
	assert.Equal(t, msgPose, metricType(msgPose))
	assert.Equal(t, "unknown", metricType("x-"+strings.Repeat("a", 64)))
	assert.Equal(t, "unknown", metricType(msgStart), "server-to-client types are not received")
}
