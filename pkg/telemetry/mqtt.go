// Package telemetry publishes rover state to an MQTT broker so ground
// stations can follow wheel speeds and encoder counts without holding a
// websocket open to the rover.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rovercam/go-rover/internal/log"
	"github.com/rovercam/go-rover/pkg/rover"
)

// Options configures the MQTT publisher.
type Options struct {
	Broker   string // e.g. tcp://host:1883
	ClientID string
	Topic    string
}

// Publisher pushes rover state snapshots to an MQTT topic.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// message is the wire format published on the telemetry topic.
type message struct {
	Timestamp int64       `json:"ts"` // Unix milliseconds
	State     rover.State `json:"state"`
}

// Connect creates the MQTT client and connects to the broker. The client
// reconnects automatically; a broker outage only drops telemetry, never
// the control loop.
func Connect(opts Options) (*Publisher, error) {
	if opts.Broker == "" || opts.Topic == "" {
		return nil, fmt.Errorf("telemetry: broker and topic are required")
	}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectRetryInterval(5 * time.Second)
	clientOpts.OnConnect = func(mqtt.Client) {
		log.Info("telemetry connected to MQTT broker", "broker", opts.Broker)
	}
	clientOpts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("telemetry MQTT connection lost", "error", err)
	}

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connect: %w", token.Error())
	}
	return &Publisher{client: client, topic: opts.Topic}, nil
}

// Publish sends a state snapshot. Non-blocking: delivery is fire-and-forget
// at QoS 0, matching the advisory nature of telemetry.
func (p *Publisher) Publish(state rover.State) {
	msg := message{
		Timestamp: time.Now().UnixMilli(),
		State:     state,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error("telemetry marshal failed", "error", err)
		return
	}
	p.client.Publish(p.topic, 0, false, payload)
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
