package notify

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

var testAlerts = []models.SmartAlert{
	{Type: models.AlertPrediction, Priority: 1, AssetID: "TS003", MaintenanceType: "Telecom Certificate", Title: "Maintenance Overdue Prediction: TS003"},
	{Type: models.AlertPattern, Priority: 2, MaintenanceType: "Brake", Title: "Recurring Failure Pattern: Brake", EstimatedCost: 1200},
}

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeClient records publishes; other mqtt.Client methods are not used.
type fakeClient struct {
	mqtt.Client
	topics   []string
	payloads [][]byte
	failOn   int
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if c.failOn > 0 && len(c.payloads)+1 == c.failOn {
		c.failOn = 0
		return fakeToken{err: errors.New("broker rejected")}
	}
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	n, err := p.PublishAlerts(context.Background(), testAlerts)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, p.Close())
}

func TestMQTTPublisher_PublishAlerts(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "fleet/maintenance/alerts")
	published := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return published }

	n, err := p.PublishAlerts(context.Background(), testAlerts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"fleet/maintenance/alerts", "fleet/maintenance/alerts"}, client.topics)

	var msg AlertMessage
	require.NoError(t, json.Unmarshal(client.payloads[0], &msg))
	assert.Equal(t, published, msg.PublishedAt)
	assert.Equal(t, "TS003", msg.Alert.AssetID)
	assert.Equal(t, models.AlertPrediction, msg.Alert.Type)
	assert.NoError(t, p.Close())
}

func TestMQTTPublisher_PartialFailure(t *testing.T) {
	client := &fakeClient{failOn: 1}
	p := newMQTTPublisher(client, "alerts")

	n, err := p.PublishAlerts(context.Background(), testAlerts)
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, client.payloads, 1)
}

func TestMQTTPublisher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{}
	n, err := newMQTTPublisher(client, "alerts").PublishAlerts(ctx, testAlerts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Empty(t, client.payloads)
}

func TestRedisPublisher_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	p := NewRedisPublisherFromClient(client, "fleet:maintenance:alerts")
	defer p.Close()

	n, err := p.PublishAlerts(context.Background(), testAlerts[:1])
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestNewRedisPublisher_InvalidURL(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), "not a url", "alerts")
	assert.Error(t, err)
}

func TestRedisPublisher_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := NewRedisPublisher(ctx, url, "fleet:maintenance:alerts:test")
	require.NoError(t, err)
	defer p.Close()

	sub := p.client.Subscribe(ctx, "fleet:maintenance:alerts:test")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	n, err := p.PublishAlerts(ctx, testAlerts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var decoded AlertMessage
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
	assert.Equal(t, "TS003", decoded.Alert.AssetID)
}

func TestMQTTPublisher_Integration(t *testing.T) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		t.Skip("MQTT_BROKER not set")
	}
	p, err := NewMQTTPublisher(broker, "fleet-maintenance-test", "fleet/maintenance/alerts/test")
	require.NoError(t, err)
	defer p.Close()

	n, err := p.PublishAlerts(context.Background(), testAlerts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
