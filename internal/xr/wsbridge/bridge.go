// Package wsbridge implements xr.Device over a websocket. A companion page on
// an AR-capable phone connects, runs the native session, and streams poses
// and hit-test results back. Messages are buffered by the connection
// goroutine and replayed on the update loop by Poll.
package wsbridge

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"splatviewer/internal/metrics"
	"splatviewer/internal/xr"
)

// ErrNoClient is reported when a session is requested with nobody connected.
var ErrNoClient = errors.New("wsbridge: no client connected")

const inboxSize = 256

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type capsMsg struct {
	LightEstimation bool `json:"light_estimation"`
	HitTest         bool `json:"hit_test"`
}

// message is the single wire shape for both directions.
type message struct {
	Type string `json:"type"`
	// start / hittest:start
	Mode     string   `json:"mode,omitempty"`
	Space    string   `json:"space,omitempty"`
	Required []string `json:"required,omitempty"`
	Optional []string `json:"optional,omitempty"`
	// hello
	Capabilities *capsMsg `json:"capabilities,omitempty"`
	// pose / hit
	Position *[3]float64 `json:"position,omitempty"`
	Rotation *[4]float64 `json:"rotation,omitempty"` // x, y, z, w
	// hittest:*, hit, hit:notfound
	Source int    `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Message types.
const (
	msgHello          = "hello"
	msgStarted        = "started"
	msgEnded          = "ended"
	msgError          = "error"
	msgPose           = "pose"
	msgHitTestStarted = "hittest:started"
	msgHitTestFailed  = "hittest:failed"
	msgHit            = "hit"
	msgHitNotFound    = "hit:notfound"

	msgStart        = "start"
	msgEnd          = "end"
	msgLightStart   = "light:start"
	msgLightEnd     = "light:end"
	msgHitTestStart = "hittest:start"
	msgHitTestStop  = "hittest:stop"

	// msgDisconnect is generated locally when the client goes away.
	msgDisconnect = "disconnect"
)

// Device is an xr.Device backed by one websocket client at a time.
type Device struct {
	log zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	clientID string
	writeMu  sync.Mutex
	inbox    chan message

	// Fields below are owned by the update loop.
	local      []message
	handler    xr.Handler
	active     bool
	caps       capsMsg
	light      *lightEstimation
	hit        *hitTester
	nextSource int
	pending    map[int]func(xr.HitTestSource, error)
	sources    map[int]*source
}

var (
	_ xr.Device    = (*Device)(nil)
	_ xr.Poller    = (*Device)(nil)
	_ http.Handler = (*Device)(nil)
)

func New(log zerolog.Logger) *Device {
	d := &Device{
		log:     log.With().Str("component", "wsbridge").Logger(),
		inbox:   make(chan message, inboxSize),
		handler: nopHandler{},
		pending: make(map[int]func(xr.HitTestSource, error)),
		sources: make(map[int]*source),
	}
	d.light = &lightEstimation{d: d}
	d.hit = &hitTester{d: d}
	return d
}

// ServeHTTP upgrades the request and runs the client's read loop until it
// disconnects. A second client is refused while one is connected.
func (d *Device) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	busy := d.conn != nil
	d.mu.Unlock()
	if busy {
		http.Error(w, "an AR client is already connected", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	id := uuid.NewString()
	d.mu.Lock()
	if d.conn != nil {
		d.mu.Unlock()
		conn.Close()
		return
	}
	d.conn = conn
	d.clientID = id
	d.mu.Unlock()
	metrics.BridgeClients.Inc()
	d.log.Info().Str("client", id).Str("remote", r.RemoteAddr).Msg("AR client connected")

	defer func() {
		d.mu.Lock()
		if d.conn == conn {
			d.conn = nil
			d.clientID = ""
		}
		d.mu.Unlock()
		conn.Close()
		metrics.BridgeClients.Dec()
		d.inbox <- message{Type: msgDisconnect}
		d.log.Info().Str("client", id).Msg("AR client disconnected")
	}()

	for {
		var m message
		if err := conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.log.Warn().Err(err).Msg("read failed")
			}
			return
		}
		metrics.BridgeMessages.WithLabelValues("in", metricType(m.Type)).Inc()
		d.inbox <- m
	}
}

// Connected reports whether a client is attached.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// ClientID returns the id of the attached client, or "".
func (d *Device) ClientID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clientID
}

// Close drops the current client, if any.
func (d *Device) Close() error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return nil
	}
	d.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	d.writeMu.Unlock()
	return conn.Close()
}

func (d *Device) send(m message) error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return ErrNoClient
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if err := conn.WriteJSON(m); err != nil {
		return fmt.Errorf("wsbridge: send %s: %w", m.Type, err)
	}
	metrics.BridgeMessages.WithLabelValues("out", m.Type).Inc()
	return nil
}

func (d *Device) SetHandler(h xr.Handler) {
	if h == nil {
		h = nopHandler{}
	}
	d.handler = h
}

// Start forwards the session request. Without a client the failure is
// reported on the next Poll as an error followed by an end.
func (d *Device) Start(mode xr.Mode, space xr.Space, opts xr.Options) {
	m := message{
		Type:     msgStart,
		Mode:     string(mode),
		Space:    string(space),
		Required: featureNames(opts.RequiredFeatures),
		Optional: featureNames(opts.OptionalFeatures),
	}
	if err := d.send(m); err != nil {
		d.local = append(d.local,
			message{Type: msgError, Error: err.Error()},
			message{Type: msgEnded})
	}
}

func (d *Device) End() {
	if err := d.send(message{Type: msgEnd}); err != nil {
		d.log.Debug().Err(err).Msg("end")
		if d.active {
			d.local = append(d.local, message{Type: msgEnded})
		}
	}
}

func (d *Device) Active() bool { return d.active }

// Capabilities reflects what the client announced in its hello.
func (d *Device) Capabilities() xr.Capabilities {
	var c xr.Capabilities
	if d.caps.LightEstimation {
		c.LightEstimation = d.light
	}
	if d.caps.HitTest {
		c.HitTest = d.hit
	}
	return c
}

// Poll delivers everything received since the previous call.
func (d *Device) Poll() {
	for len(d.local) > 0 {
		m := d.local[0]
		d.local = d.local[1:]
		d.dispatch(m)
	}
	for {
		select {
		case m := <-d.inbox:
			d.dispatch(m)
		default:
			return
		}
	}
}

func (d *Device) dispatch(m message) {
	switch m.Type {
	case msgHello:
		if m.Capabilities != nil {
			d.caps = *m.Capabilities
		}
		d.log.Debug().Bool("hit_test", d.caps.HitTest).Bool("light_estimation", d.caps.LightEstimation).Msg("client capabilities")
	case msgStarted:
		if d.active {
			return
		}
		d.active = true
		d.handler.XRStarted()
	case msgEnded:
		d.finish()
	case msgDisconnect:
		d.caps = capsMsg{}
		if d.active {
			d.handler.XRError(ErrNoClient)
		}
		d.finish()
	case msgError:
		d.handler.XRError(fmt.Errorf("xr client: %s", m.Error))
	case msgPose:
		if !d.active {
			return
		}
		d.handler.XRUpdate(xr.Frame{Position: vec(m.Position), Rotation: quat(m.Rotation)})
	case msgHitTestStarted:
		cb, ok := d.pending[m.Source]
		if !ok {
			return
		}
		delete(d.pending, m.Source)
		src := &source{id: m.Source, d: d}
		d.sources[m.Source] = src
		cb(src, nil)
	case msgHitTestFailed:
		cb, ok := d.pending[m.Source]
		if !ok {
			return
		}
		delete(d.pending, m.Source)
		cb(nil, fmt.Errorf("hit-test: %s", m.Error))
	case msgHit:
		if src, ok := d.sources[m.Source]; ok && src.onResult != nil {
			src.onResult(vec(m.Position), quat(m.Rotation))
		}
	case msgHitNotFound:
		if src, ok := d.sources[m.Source]; ok && src.onNotFound != nil {
			src.onNotFound()
		}
	default:
		d.log.Warn().Str("type", m.Type).Msg("unknown message")
	}
}

// finish tears down per-session state and reports the end once.
func (d *Device) finish() {
	for id, cb := range d.pending {
		delete(d.pending, id)
		cb(nil, xr.ErrSourceStopped)
	}
	for id, src := range d.sources {
		src.stopped = true
		delete(d.sources, id)
	}
	// Reported even without an active session so that a failed start
	// still reaches the requester.
	d.active = false
	d.handler.XREnded()
}

type lightEstimation struct{ d *Device }

func (l *lightEstimation) Start() { l.d.sendOrLog(message{Type: msgLightStart}) }
func (l *lightEstimation) End()   { l.d.sendOrLog(message{Type: msgLightEnd}) }

type hitTester struct{ d *Device }

func (h *hitTester) Start(space xr.Space, cb func(xr.HitTestSource, error)) {
	d := h.d
	d.nextSource++
	id := d.nextSource
	d.pending[id] = cb
	if err := d.send(message{Type: msgHitTestStart, Space: string(space), Source: id}); err != nil {
		d.local = append(d.local, message{Type: msgHitTestFailed, Source: id, Error: err.Error()})
	}
}

type source struct {
	id         int
	d          *Device
	stopped    bool
	onResult   func(mgl64.Vec3, mgl64.Quat)
	onNotFound func()
}

func (s *source) OnResult(f func(mgl64.Vec3, mgl64.Quat)) { s.onResult = f }
func (s *source) OnNotFound(f func())                     { s.onNotFound = f }

func (s *source) Stop() error {
	if s.stopped {
		return xr.ErrSourceStopped
	}
	s.stopped = true
	delete(s.d.sources, s.id)
	s.d.sendOrLog(message{Type: msgHitTestStop, Source: s.id})
	return nil
}

func (d *Device) sendOrLog(m message) {
	if err := d.send(m); err != nil {
		d.log.Debug().Err(err).Str("type", m.Type).Msg("send")
	}
}

// metricType bounds the label set to the message types this side knows.
func metricType(t string) string {
	switch t {
	case msgHello, msgStarted, msgEnded, msgError, msgPose,
		msgHitTestStarted, msgHitTestFailed, msgHit, msgHitNotFound:
		return t
	}
	return "unknown"
}

func featureNames(fs []xr.Feature) []string {
	if len(fs) == 0 {
		return nil
	}
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

func vec(p *[3]float64) mgl64.Vec3 {
	if p == nil {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{p[0], p[1], p[2]}
}

func quat(r *[4]float64) mgl64.Quat {
	if r == nil {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}.Normalize()
}

type nopHandler struct{}

func (nopHandler) XRStarted()        {}
func (nopHandler) XREnded()          {}
func (nopHandler) XRError(error)     {}
func (nopHandler) XRUpdate(xr.Frame) {}
