package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/config"
)

// FCMSender posts to the legacy FCM HTTP endpoint.
type FCMSender struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

type fcmMessage struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data"`
	Priority     string            `json:"priority"`
}

func (f *FCMSender) Send(ctx context.Context, r Reminder) error {
	if f.Key == "" {
		return errors.New("FCM_SERVER_KEY not configured")
	}
	payload, err := json.Marshal(fcmMessage{
		To:           r.Token,
		Notification: fcmNotification{Title: r.Title, Body: r.Body, Sound: "default"},
		Data:         r.Data,
		Priority:     "high",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+f.Key)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("FCM request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("FCM request failed: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// MQTTSender publishes each reminder as JSON on <prefix>/<user_id>.
type MQTTSender struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

const mqttQoS = 1

// NewMQTTSender connects to the broker in cfg.
func NewMQTTSender(cfg config.Notify, log *zap.Logger) (*MQTTSender, error) {
	if cfg.MQTTBroker == "" {
		return nil, errors.New("mqtt broker not configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	options := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID("lexday-notify").
		SetUsername(cfg.MQTTUser).
		SetPassword(cfg.MQTTPass).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info("mqtt connected", zap.String("broker", cfg.MQTTBroker))
		})
	client := mqtt.NewClient(options)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, errors.New("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return NewMQTTSenderWithClient(client, cfg.TopicPrefix), nil
}

func NewMQTTSenderWithClient(client mqtt.Client, prefix string) *MQTTSender {
	return &MQTTSender{client: client, prefix: prefix, timeout: 10 * time.Second}
}

func (m *MQTTSender) Topic(userID string) string {
	return m.prefix + "/" + userID
}

func (m *MQTTSender) Send(ctx context.Context, r Reminder) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.Topic(r.UserID), mqttQoS, false, payload)

	wait := m.timeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < wait {
		wait = time.Until(dl)
	}
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("publish to %s timed out", m.Topic(r.UserID))
	}
	return token.Error()
}

// Close disconnects from the broker, letting in-flight messages drain.
func (m *MQTTSender) Close() {
	m.client.Disconnect(250)
}

// LogSender only logs. It is the default transport for local runs.
type LogSender struct {
	Log *zap.Logger
}

func (l LogSender) Send(_ context.Context, r Reminder) error {
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("reminder",
		zap.String("user", r.UserID),
		zap.String("title", r.Title),
		zap.String("body", r.Body))
	return nil
}

// NewSender builds the transport named in cfg. The returned func releases
// it.
func NewSender(cfg config.Notify, log *zap.Logger) (Sender, func(), error) {
	switch cfg.Transport {
	case config.TransportFCM:
		return &FCMSender{Endpoint: cfg.FCMEndpoint, Key: cfg.FCMKey, Client: &http.Client{Timeout: 15 * time.Second}}, func() {}, nil
	case config.TransportMQTT:
		s, err := NewMQTTSender(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return LogSender{Log: log}, func() {}, nil
	}
}
