package notification

import (
	"context"
	"fmt"
	"log"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/quocanhngo/airguard/internal/airquality"
	"github.com/quocanhngo/airguard/internal/model"
	"google.golang.org/api/option"
)

// Sender is the subset of the FCM client used for alerts
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// AlertPusher sends alert-onset pushes to an FCM topic
type AlertPusher struct {
	client Sender
	topic  string
}

// NewAlertPusher initializes Firebase. Returns nil when push is not configured
// or Firebase cannot start, so callers can skip it.
func NewAlertPusher(credentialsFile, topic string) *AlertPusher {
	if credentialsFile == "" || topic == "" {
		log.Println("⚠️ Firebase credentials or topic not provided, push alerts disabled")
		return nil
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		log.Printf("⚠️ Failed to initialize Firebase app: %v (push alerts disabled)", err)
		return nil
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		log.Printf("⚠️ Failed to get messaging client: %v", err)
		return nil
	}

	log.Printf("✅ Firebase FCM initialized (topic %s)", topic)
	return &AlertPusher{client: client, topic: topic}
}

func NewAlertPusherWithClient(client Sender, topic string) *AlertPusher {
	return &AlertPusher{client: client, topic: topic}
}

// NotifyAlert pushes one notification for a device that just entered alert
func (p *AlertPusher) NotifyAlert(ctx context.Context, event model.StatusEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	_, err := p.client.Send(ctx, BuildAlertMessage(p.topic, event))
	if err != nil {
		return fmt.Errorf("error sending FCM alert: %w", err)
	}
	return nil
}

// BuildAlertMessage renders the topic message for an alert event
func BuildAlertMessage(topic string, event model.StatusEvent) *messaging.Message {
	metrics := make([]string, 0, len(airquality.Metrics))
	for _, m := range event.Evaluation.OutOfRange() {
		metrics = append(metrics, string(m))
	}

	return &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: "🚨 Air quality alert: " + event.DeviceName,
			Body:  fmt.Sprintf("Out of range: %s (CO₂ %d ppm)", strings.Join(metrics, ", "), event.Reading.CO2),
		},
		Data: map[string]string{
			"type":       "air_quality_alert",
			"device_uid": event.DeviceUID,
			"metrics":    strings.Join(metrics, ","),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}
