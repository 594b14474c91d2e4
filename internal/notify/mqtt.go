package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

const mqttTimeout = 10 * time.Second

// MQTTPublisher publishes each alert as a QoS 1 message on one topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	now    func() time.Time
}

// NewMQTTPublisher connects to broker and returns a publisher for topic.
func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetConnectTimeout(mqttTimeout)
	opts.OnConnect = func(mqtt.Client) {
		log.WithFields(log.Fields{"broker": broker, "client_id": clientID}).Info("Connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return newMQTTPublisher(client, topic), nil
}

func newMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, now: time.Now}
}

// PublishAlerts publishes alerts in order. Failed alerts are logged and skipped; the
// returned error joins all failures.
func (p *MQTTPublisher) PublishAlerts(ctx context.Context, alerts []models.SmartAlert) (int, error) {
	published := 0
	var errs []error
	for _, a := range alerts {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		data, err := encodeAlert(a, p.now())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		token := p.client.Publish(p.topic, 1, false, data)
		if !token.WaitTimeout(mqttTimeout) {
			errs = append(errs, fmt.Errorf("mqtt publish to %s timed out", p.topic))
			continue
		}
		if err := token.Error(); err != nil {
			log.WithFields(log.Fields{"topic": p.topic, "asset_id": a.AssetID, "type": a.Type}).WithError(err).Error("Failed to publish alert")
			errs = append(errs, err)
			continue
		}
		metrics.AlertsPublished.Inc()
		published++
	}
	return published, errors.Join(errs...)
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
