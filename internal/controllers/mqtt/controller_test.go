package mqttctrl

import (
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/battmock/battmock/internal/testutil"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeToken struct {
	err  error
	done chan struct{}
}

func (t fakeToken) Done() <-chan struct{} {
	if t.done == nil {
		t.done = make(chan struct{})
		close(t.done)
	}
	return t.done
}

func (t fakeToken) Wait() bool                       { return true }
func (t fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t fakeToken) Error() error                     { return t.err }

type publishCall struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

type fakeClient struct {
	publishes []publishCall
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() mqtt.Token    { return fakeToken{} }
func (c *fakeClient) Disconnect(_ uint)      {}
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = append([]byte(nil), v...)
	case string:
		b = []byte(v)
	default:
		// shouldn't happen in our controller, but keep it safe
		tmp, _ := json.Marshal(v)
		b = tmp
	}
	c.publishes = append(c.publishes, publishCall{
		topic: topic, qos: qos, retain: retained, payload: b,
	})
	return fakeToken{}
}
func (c *fakeClient) Subscribe(_ string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) Unsubscribe(_ ...string) mqtt.Token       { return fakeToken{} }
func (c *fakeClient) AddRoute(_ string, _ mqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader  { return mqtt.ClientOptionsReader{} }

// ---- tests ----
func newDefaultSvc() *testutil.FakeBatteryService {
	return testutil.NewFakeBatteryService()
}

func TestNewDefaults(t *testing.T) {
	svc := newDefaultSvc()
	c, err := New(svc, Config{DeviceID: "phone-7"})
	if err != nil {
		t.Fatal(err)
	}

	if c.cfg.BrokerURL != "tcp://localhost:1883" {
		t.Fatalf("expected default BrokerURL, got %q", c.cfg.BrokerURL)
	}
	if c.cfg.BaseTopic != "battmock/phone-7" {
		t.Fatalf("expected default BaseTopic, got %q", c.cfg.BaseTopic)
	}
	if c.cfg.ClientID != "battmock-phone-7" {
		t.Fatalf("expected default ClientID, got %q", c.cfg.ClientID)
	}
	if c.cfg.PublishInterval != 1*time.Second {
		t.Fatalf("expected default PublishInterval, got %v", c.cfg.PublishInterval)
	}
}

func TestNewValidation(t *testing.T) {
	svc := newDefaultSvc()

	if _, err := New(svc, Config{}); err == nil {
		t.Fatal("expected error when DeviceID missing")
	}

	if _, err := New(svc, Config{DeviceID: "x", QoS: 2}); err == nil {
		t.Fatal("expected error when QoS > 1")
	}
}

func TestTopicJoin(t *testing.T) {
	svc := newDefaultSvc()
	c, err := New(svc, Config{DeviceID: "phone-7", BaseTopic: "battmock/phone-7/"})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.topic("snapshot"); got != "battmock/phone-7/snapshot" {
		t.Fatalf("expected topic without double slashes, got %q", got)
	}
}

func TestDecodeValueStrict(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		v, err := decodeValueStrict[float64]([]byte(`{"value": 0.75}`))
		if err != nil {
			t.Fatal(err)
		}
		if v != 0.75 {
			t.Fatalf("expected 0.75, got %v", v)
		}
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := decodeValueStrict[bool]([]byte(`{}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		_, err := decodeValueStrict[float64]([]byte(`{"value":0.5,"extra":1}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := decodeValueStrict[float64]([]byte(`{"value":`))
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestOnMessage_IgnoresWrongPrefix(t *testing.T) {
	svc := newDefaultSvc()
	c, err := New(svc, Config{DeviceID: "phone-7"})
	if err != nil {
		t.Fatal(err)
	}

	c.onMessage(nil, fakeMessage{
		topic:   "otherprefix/set/brightness",
		payload: []byte(`{"value":0.9}`),
	})

	if svc.SetBrightnessCalled {
		t.Fatal("expected SetBrightness not called")
	}
}

func TestOnMessage_Brightness(t *testing.T) {
	svc := newDefaultSvc()
	c, _ := New(svc, Config{DeviceID: "phone-7"})
	fc := &fakeClient{}
	c.client = fc
	c.onMessage(nil, fakeMessage{
		topic:   "battmock/phone-7/set/brightness",
		payload: []byte(`{"value":0.9}`),
	})

	if !svc.SetBrightnessCalled || svc.SetBrightnessArg != 0.9 {
		t.Fatalf("expected SetBrightness(0.9), got called=%v arg=%v", svc.SetBrightnessCalled, svc.SetBrightnessArg)
	}
}

func TestOnMessage_CPULoad(t *testing.T) {
	svc := newDefaultSvc()
	c, _ := New(svc, Config{DeviceID: "phone-7"})
	fc := &fakeClient{}
	c.client = fc

	c.onMessage(nil, fakeMessage{
		topic:   "battmock/phone-7/set/cpu_load",
		payload: []byte(`{"value":0.8}`),
	})

	if !svc.SetCPULoadCalled || svc.SetCPULoadArg != 0.8 {
		t.Fatalf("expected SetCPULoad(0.8), got called=%v arg=%v", svc.SetCPULoadCalled, svc.SetCPULoadArg)
	}
}

func TestOnMessage_Flags(t *testing.T) {
	svc := newDefaultSvc()
	c, _ := New(svc, Config{DeviceID: "phone-7"})
	fc := &fakeClient{}
	c.client = fc

	c.onMessage(nil, fakeMessage{
		topic:   "battmock/phone-7/set/network",
		payload: []byte(`{"value":false}`),
	})
	if !svc.SetNetworkCalled || svc.SetNetworkArg != false {
		t.Fatalf("expected SetNetwork(false), got called=%v arg=%v", svc.SetNetworkCalled, svc.SetNetworkArg)
	}

	c.onMessage(nil, fakeMessage{
		topic:   "battmock/phone-7/set/gps",
		payload: []byte(`{"value":false}`),
	})
	if !svc.SetGPSCalled || svc.SetGPSArg != false {
		t.Fatalf("expected SetGPS(false), got called=%v arg=%v", svc.SetGPSCalled, svc.SetGPSArg)
	}

	c.onMessage(nil, fakeMessage{
		topic:   "battmock/phone-7/set/background",
		payload: []byte(`{"value":true}`),
	})
	if !svc.SetBackgroundCalled || svc.SetBackgroundArg != true {
		t.Fatalf("expected SetBackground(true), got called=%v arg=%v", svc.SetBackgroundCalled, svc.SetBackgroundArg)
	}
}

func TestOnMessage_Ambient(t *testing.T) {
	svc := newDefaultSvc()
	c, _ := New(svc, Config{DeviceID: "phone-7"})
	fc := &fakeClient{}
	c.client = fc
	c.onMessage(nil, fakeMessage{
		topic:   "battmock/phone-7/set/ambient_temperature",
		payload: []byte(`{"value":35}`),
	})

	if !svc.SetAmbientCalled || svc.SetAmbientArg != 35 {
		t.Fatalf("expected SetAmbient(35), got called=%v arg=%v", svc.SetAmbientCalled, svc.SetAmbientArg)
	}
}

func TestOnMessage_Reset(t *testing.T) {
	svc := newDefaultSvc()
	c, _ := New(svc, Config{DeviceID: "phone-7"})
	fc := &fakeClient{}
	c.client = fc
	c.onMessage(nil, fakeMessage{
		topic:   "battmock/phone-7/set/reset",
		payload: []byte(`{"value":0.5}`),
	})

	if !svc.ResetCalled || svc.ResetArg != 0.5 {
		t.Fatalf("expected Reset(0.5), got called=%v arg=%v", svc.ResetCalled, svc.ResetArg)
	}
}

func TestOnMessage_WrongType_DoesNotCallService(t *testing.T) {
	svc := newDefaultSvc()
	c, _ := New(svc, Config{DeviceID: "phone-7"})
	fc := &fakeClient{}
	c.client = fc

	c.onMessage(nil, fakeMessage{
		topic:   "battmock/phone-7/set/brightness",
		payload: []byte(`{"value":"bright"}`),
	})

	if svc.SetBrightnessCalled {
		t.Fatal("expected SetBrightness not called")
	}
}

func TestPublishSnapshot_PublishesJSON(t *testing.T) {
	svc := newDefaultSvc()
	c, _ := New(svc, Config{DeviceID: "phone-7", QoS: 1, RetainSnapshot: true})

	fc := &fakeClient{}
	c.client = fc

	c.publishSnapshot()

	if len(fc.publishes) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(fc.publishes))
	}

	p := fc.publishes[0]
	if p.topic != "battmock/phone-7/snapshot" {
		t.Fatalf("expected snapshot topic, got %q", p.topic)
	}
	if p.qos != 1 || p.retain != true {
		t.Fatalf("expected qos=1 retain=true, got qos=%d retain=%v", p.qos, p.retain)
	}

	var got map[string]any
	if err := json.Unmarshal(p.payload, &got); err != nil {
		t.Fatalf("invalid published json: %v payload=%s", err, string(p.payload))
	}
	if got["soc"] != 1.0 {
		t.Fatalf("expected soc=1, got %v", got["soc"])
	}
	if got["brightness"] != 0.6 {
		t.Fatalf("expected brightness=0.6, got %v", got["brightness"])
	}
	if got["gps"] != true {
		t.Fatalf("expected gps=true, got %v", got["gps"])
	}
}
