package input

import (
	"encoding/json"
	"io"
	"time"

	"kneeboard.dev/core/eventbus"
)

// OTDMessageType discriminates the {DeviceInfo, State, Ping} messages
// an OpenTabletDriver IPC pipe sends (spec §4.K).
type OTDMessageType string

const (
	OTDDeviceInfo OTDMessageType = "DeviceInfo"
	OTDState      OTDMessageType = "State"
	OTDPing       OTDMessageType = "Ping"
)

// OTDPipeName is the well-known pipe the external OpenTabletDriver
// exposes (spec §4.K).
const OTDPipeName = `\\.\pipe\otd-ipc`

// otdEnvelope is the wire shape of one newline-delimited JSON message
// on the pipe.
type otdEnvelope struct {
	Type OTDMessageType  `json:"type"`
	Data json.RawMessage `json:"data"`
}

// OTDDeviceInfoPayload describes the tablet attached to the driver.
type OTDDeviceInfoPayload struct {
	Name             string  `json:"name"`
	ReportsProximity bool    `json:"reportsProximity"`
	Width            float32 `json:"width,omitempty"`
	Height           float32 `json:"height,omitempty"`
}

// OTDStatePayload is one tablet sample.
type OTDStatePayload struct {
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	Pressure float32 `json:"pressure"`
	Buttons  uint32  `json:"buttons"`
	InRange  bool    `json:"inRange"`
}

// TabletState is the event this client republishes for every decoded
// State message, after the no-proximity timeout logic below has run.
type TabletState struct {
	X, Y     float32
	Pressure float32
	Buttons  uint32
	InRange  bool
}

// noProximityTimeout is applied to tablets whose driver does not
// report proximity (e.g. Huion): InRange is forced true for this long
// after the last sample, then false, so the cursor doesn't stick
// on-screen forever after the pen is lifted (spec §4.K).
const noProximityTimeout = 100 * time.Millisecond

// OTDIPCClient connects to an external OpenTabletDriver IPC pipe,
// decodes its message stream, and publishes TabletState events.
type OTDIPCClient struct {
	conn io.ReadCloser
	dec  *json.Decoder

	reportsProximity bool
	lastSampleAt     time.Time
	now              func() time.Time

	deviceInfo eventbus.Event[OTDDeviceInfoPayload]
	state      eventbus.Event[TabletState]
}

// NewOTDIPCClient wraps an already-open pipe connection (dialed by
// the caller via golang.org/x/sys/windows.CreateFile against
// OTDPipeName; kept as an io.ReadCloser parameter so this type is
// testable without a real named pipe).
func NewOTDIPCClient(conn io.ReadCloser) *OTDIPCClient {
	return &OTDIPCClient{
		conn: conn,
		dec:  json.NewDecoder(conn),
		now:  time.Now,
	}
}

// DeviceInfo lets callers subscribe to the driver's device
// description, received once per connection (and again on
// reconnect).
func (c *OTDIPCClient) DeviceInfo() *eventbus.Event[OTDDeviceInfoPayload] { return &c.deviceInfo }

// State lets callers subscribe to translated tablet samples.
func (c *OTDIPCClient) State() *eventbus.Event[TabletState] { return &c.state }

// Run decodes messages from the pipe until it closes or decoding
// fails, dispatching DeviceInfo and State messages and ignoring Ping
// (a liveness heartbeat with no payload this client needs).
func (c *OTDIPCClient) Run() error {
	for {
		var env otdEnvelope
		if err := c.dec.Decode(&env); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		c.handle(env)
	}
}

func (c *OTDIPCClient) handle(env otdEnvelope) {
	switch env.Type {
	case OTDDeviceInfo:
		var info OTDDeviceInfoPayload
		if err := json.Unmarshal(env.Data, &info); err == nil {
			c.reportsProximity = info.ReportsProximity
			c.deviceInfo.Emit(info)
		}
	case OTDState:
		var s OTDStatePayload
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return
		}
		c.state.Emit(c.resolveProximity(s))
	case OTDPing:
		// Liveness only; no payload to act on.
	}
}

// resolveProximity applies the no-proximity timeout: if the driver
// doesn't report proximity at all, InRange is synthesized as true
// until noProximityTimeout has elapsed since the last sample.
func (c *OTDIPCClient) resolveProximity(s OTDStatePayload) TabletState {
	now := c.now()
	if c.reportsProximity {
		if s.InRange {
			c.lastSampleAt = now
		}
		return TabletState{X: s.X, Y: s.Y, Pressure: s.Pressure, Buttons: s.Buttons, InRange: s.InRange}
	}

	inRange := s.X != 0 || s.Y != 0 || s.Pressure != 0 || s.Buttons != 0
	if inRange {
		c.lastSampleAt = now
	}
	stillWithinTimeout := !c.lastSampleAt.IsZero() && now.Sub(c.lastSampleAt) <= noProximityTimeout
	return TabletState{X: s.X, Y: s.Y, Pressure: s.Pressure, Buttons: s.Buttons, InRange: stillWithinTimeout}
}

// Close closes the underlying pipe connection.
func (c *OTDIPCClient) Close() error {
	return c.conn.Close()
}
