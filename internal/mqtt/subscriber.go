// Package mqtt feeds readings published by devices over MQTT into the
// ingestion pipeline.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/quocanhngo/airguard/internal/config"
	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/internal/service"
)

// Ingester is the ingestion pipeline entry point
type Ingester interface {
	Ingest(ctx context.Context, source, uid, credential string, r service.Reading) (*model.Measurement, error)
}

// Subscriber consumes readings from MQTT_TOPIC
type Subscriber struct {
	client  paho.Client
	topic   string
	ingest  Ingester
	timeout time.Duration
	logger  *log.Logger
}

func NewSubscriber(cfg config.MQTTConfig, ingest Ingester, logger *log.Logger) *Subscriber {
	if logger == nil {
		logger = log.Default()
	}
	s := &Subscriber{
		topic:   cfg.Topic,
		ingest:  ingest,
		timeout: 10 * time.Second,
		logger:  logger,
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(false).
		SetConnectTimeout(10 * time.Second).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Printf("⚠️  MQTT connection lost: %v", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	s.client = paho.NewClient(opts)
	return s
}

// Start connects to the broker. Subscriptions are (re)established on every connect.
func (s *Subscriber) Start() error {
	token := s.client.Connect()
	if !token.WaitTimeout(15*time.Second) {
		return errors.New("mqtt connect timed out")
	}
	return token.Error()
}

// Stop disconnects, letting in-flight handlers finish for up to 250ms
func (s *Subscriber) Stop() {
	s.client.Disconnect(250)
}

func (s *Subscriber) onConnect(c paho.Client) {
	token := c.Subscribe(s.topic, 1, func(_ paho.Client, msg paho.Message) {
		if err := s.Handle(msg.Topic(), msg.Payload()); err != nil {
			s.logger.Printf("⚠️  MQTT reading on %s rejected: %v", msg.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		s.logger.Printf("❌ MQTT subscribe to %s failed: %v", s.topic, token.Error())
		return
	}
	s.logger.Printf("📡 MQTT subscribed to %s", s.topic)
}

// Handle ingests one payload. The device uid comes from the payload or,
// when absent, from the topic segment after the prefix (airguard/<uid>/readings).
func (s *Subscriber) Handle(topic string, payload []byte) error {
	var p model.ReadingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	uid := p.DeviceUID
	if uid == "" {
		uid = uidFromTopic(topic)
	}
	if p.CO2 == nil || p.Temperature == nil || p.Humidity == nil {
		return fmt.Errorf("%w: co2, temperature and humidity are required", service.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.ingest.Ingest(ctx, "mqtt", uid, p.APIKey, service.Reading{
		CO2:         *p.CO2,
		Temperature: *p.Temperature,
		Humidity:    *p.Humidity,
		Pressure:    p.Pressure,
	})
	return err
}

func uidFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[len(parts)-2]
	}
	return ""
}
