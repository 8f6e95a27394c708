package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/battmock/battmock/internal/battery"
	"github.com/battmock/battmock/internal/ports"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.BatteryService
	cfg Config

	client mqtt.Client
}

func New(svc ports.BatteryService, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "battmock/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "battmock-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		// Subscribe to all set commands under BaseTopic.
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		// If subscribe fails, paho exposes token.Error().
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish snapshot on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	var last battery.Snapshot
	first := true

	// publish immediately once
	c.publishSnapshot()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			if first || !reflect.DeepEqual(cur, last) {
				c.publishSnapshot()
				last = cur
				first = false
			}
		}
	}
}

func (c *Controller) publishSnapshot() {
	s := c.svc.Get()
	dto := snapshotDTO{
		SOC:                 s.SOC,
		Temperature:         s.Temperature,
		AmbientTemperature:  s.AmbientTemperature,
		PowerW:              s.Power,
		CurrentA:            s.Current,
		EffectiveCapacityAh: s.EffectiveCapacity,
		Brightness:          s.Usage.Brightness,
		CPULoad:             s.Usage.CPULoad,
		Network:             s.Usage.Network,
		GPS:                 s.Usage.GPS,
		Background:          s.Usage.Background,
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
}

type snapshotDTO struct {
	SOC                 float64 `json:"soc"`
	Temperature         float64 `json:"temperature"`
	AmbientTemperature  float64 `json:"ambient_temperature"`
	PowerW              float64 `json:"power_w"`
	CurrentA            float64 `json:"current_a"`
	EffectiveCapacityAh float64 `json:"effective_capacity_ah"`
	Brightness          float64 `json:"brightness"`
	CPULoad             float64 `json:"cpu_load"`
	Network             bool    `json:"network"`
	GPS                 bool    `json:"gps"`
	Background          bool    `json:"background"`
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := c.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	payload := msg.Payload()

	// Dispatch by field
	switch field {
	case "brightness":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		c.svc.SetBrightness(v)

	case "cpu_load":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		c.svc.SetCPULoad(v)

	case "network":
		v, err := decodeValueStrict[bool](payload)
		if err != nil {
			return
		}
		c.svc.SetNetwork(v)

	case "gps":
		v, err := decodeValueStrict[bool](payload)
		if err != nil {
			return
		}
		c.svc.SetGPS(v)

	case "background":
		v, err := decodeValueStrict[bool](payload)
		if err != nil {
			return
		}
		c.svc.SetBackground(v)

	case "ambient_temperature":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		c.svc.SetAmbient(v)

	case "reset":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		c.svc.Reset(v)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
