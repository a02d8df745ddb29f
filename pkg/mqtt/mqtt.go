// Package mqtt publishes decoded frames to an mqtt broker.
package mqtt

import (
	"encoding/json"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/womat/debug"
)

const (
	// quiesce is the specified number of milliseconds to wait for existing work to be completed.
	quiesce = 250
	// connectTimeout bounds the wait for the broker.
	connectTimeout = 10 * time.Second
)

// Handler contains the handler of the mqtt broker.
type Handler struct {
	client mqttlib.Client
	// C is the channel to service the mqtt message.
	// Sending a message to channel C publishes the message.
	C chan Message
	// done is closed when Service returns.
	done chan struct{}
}

// Message contains the properties of the mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// New generates a new mqtt broker client.
func New() *Handler {
	return &Handler{
		C:    make(chan Message, 16),
		done: make(chan struct{}),
	}
}

// Connect connects to the mqtt broker.
// If no broker is defined, messages are dropped.
func (m *Handler) Connect(broker string) error {
	if broker == "" {
		debug.InfoLog.Print("no mqtt broker defined, frames are not published")
		return nil
	}

	opts := mqttlib.NewClientOptions().
		AddBroker(broker).
		SetClientID("pulsedec_" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	m.client = mqttlib.NewClient(opts)
	return m.reconnect()
}

func (m *Handler) reconnect() error {
	t := m.client.Connect()
	<-t.Done()
	return t.Error()
}

// NewMessage marshals v as JSON payload of a retained message.
func NewMessage(topic string, v interface{}) (Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: topic, Payload: b, Retained: true}, nil
}

// Service listens to messages on channel C and publishes them until C is closed.
// Without a broker or a topic the message is ignored.
func (m *Handler) Service() {
	defer close(m.done)

	for msg := range m.C {
		if m.client == nil || msg.Topic == "" {
			continue
		}

		if !m.client.IsConnected() {
			debug.DebugLog.Printf("mqtt broker isn't connected, reconnect it")
			if err := m.reconnect(); err != nil {
				debug.ErrorLog.Printf("can't reconnect to mqtt broker: %v", err)
				continue
			}
		}

		debug.DebugLog.Printf("publishing %v bytes to topic %v", len(msg.Payload), msg.Topic)
		t := m.client.Publish(msg.Topic, msg.Qos, msg.Retained, msg.Payload)

		go func(topic string) {
			<-t.Done()
			if err := t.Error(); err != nil {
				debug.ErrorLog.Printf("publishing topic %v: %v", topic, err)
			}
		}(msg.Topic)
	}
}

// Disconnect stops the service and ends the connection to the broker.
// Service must be running, no message may be sent afterwards.
func (m *Handler) Disconnect() error {
	close(m.C)
	<-m.done

	if m.client != nil {
		m.client.Disconnect(quiesce)
	}
	return nil
}
