// Package mqtt is the client of the mqtt broker: it publishes pin changes and
// receives pin write requests.
package mqtt

import (
	"fmt"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/womat/debug"
)

// quiesce is the specified number of milliseconds to wait for existing work to be completed.
const (
	quiesce = 250
)

// Handler contains the handler of the mqtt broker.
type Handler struct {
	handler mqttlib.Client
	// C is the channel to service the mqtt message
	// sending a message to channel C will send the message.
	C chan Message
}

// Message contains the properties of the mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// New generate a new mqtt broker client.
func New() *Handler {
	return &Handler{
		C: make(chan Message, 64),
	}
}

// Connect connects to the mqtt broker.
// If no broker is defined, no mqtt message are send.
func (m *Handler) Connect(broker, clientID string) error {
	if broker == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().AddBroker(broker).SetAutoReconnect(true)
	if clientID != "" {
		opts.SetClientID(clientID)
	}

	m.handler = mqttlib.NewClient(opts)
	return m.ReConnect()
}

// Connected reports whether a broker is configured.
func (m *Handler) Connected() bool {
	return m.handler != nil
}

// ReConnect reconnects to the defined mqtt broker.
func (m *Handler) ReConnect() error {
	t := m.handler.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect will end the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.handler == nil {
		return nil
	}

	m.handler.Disconnect(quiesce)
	return nil
}

// Subscribe calls f for every message received on topic (wildcards allowed).
// Without broker the subscription is ignored.
func (m *Handler) Subscribe(topic string, qos byte, f func(Message)) error {
	if m.handler == nil || topic == "" {
		return nil
	}

	t := m.handler.Subscribe(topic, qos, func(_ mqttlib.Client, msg mqttlib.Message) {
		debug.DebugLog.Printf("received %v bytes on topic %v", len(msg.Payload()), msg.Topic())
		f(Message{Topic: msg.Topic(), Payload: msg.Payload(), Qos: msg.Qos(), Retained: msg.Retained()})
	})

	<-t.Done()
	if err := t.Error(); err != nil {
		return fmt.Errorf("subscribe %v: %w", topic, err)
	}
	return nil
}

// Service listen to a message on the channel C and send the message to mqtt.
// If no handler or topic is defined, the message will be ignored.
func (m *Handler) Service() {
	for d := range m.C {
		if m.handler == nil || d.Topic == "" {
			continue
		}

		if !m.handler.IsConnected() {
			debug.DebugLog.Printf("mqtt broker isn't connected, reconnect it")

			if err := m.ReConnect(); err != nil {
				debug.ErrorLog.Printf("can't reconnect to mqtt broker %v", err)
				continue
			}
		}

		debug.DebugLog.Printf("publishing %v bytes to topic %v", len(d.Payload), d.Topic)
		t := m.handler.Publish(d.Topic, d.Qos, d.Retained, d.Payload)

		// the asynchronous nature of this library makes it easy to forget to check for errors.
		go func(topic string) {
			<-t.Done()
			if err := t.Error(); err != nil {
				debug.ErrorLog.Printf("publishing topic %v: %v", topic, err)
			}
		}(d.Topic)
	}
}

// Close stops Service.
func (m *Handler) Close() error {
	close(m.C)
	return m.Disconnect()
}
