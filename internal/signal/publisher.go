package signal

import (
	"crypto/tls"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Payload published for every confirmed payment.
const Payload = "paid"

// connectTimeout bounds the wait for the broker's connection ack.
const connectTimeout = 10 * time.Second

// Conn is one broker connection. A fresh Conn is dialed per publish
// attempt; none are reused.
type Conn interface {
	// Publish sends payload at QoS 1 and waits for the ack.
	Publish(topic, payload string) error
	// Disconnect tears the connection down.
	Disconnect()
}

// Dialer opens a connected Conn or fails within the connect timeout.
type Dialer func() (Conn, error)

// NewDialer returns a Dialer for a TLS MQTT endpoint. Credentials are
// optional; when username is empty the connection is anonymous.
func NewDialer(broker string, port int, username, password string) Dialer {
	clientID := fmt.Sprintf("zenorc-%s", uuid.NewString()[:8])
	return func() (Conn, error) {
		opts := mqtt.NewClientOptions().
			AddBroker(fmt.Sprintf("tls://%s:%d", broker, port)).
			SetClientID(clientID).
			SetTLSConfig(&tls.Config{}).
			SetConnectTimeout(connectTimeout)
		if username != "" {
			opts.SetUsername(username)
			opts.SetPassword(password)
		}

		client := mqtt.NewClient(opts)
		token := client.Connect()
		if !token.WaitTimeout(connectTimeout) {
			client.Disconnect(0)
			return nil, fmt.Errorf("mqtt connection timed out")
		}
		if err := token.Error(); err != nil {
			client.Disconnect(0)
			return nil, fmt.Errorf("mqtt connect: %w", err)
		}
		log.Printf("[publisher] mqtt connected")
		return &pahoConn{client: client}, nil
	}
}

type pahoConn struct {
	client mqtt.Client
}

func (c *pahoConn) Publish(topic, payload string) error {
	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("publish timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (c *pahoConn) Disconnect() {
	c.client.Disconnect(250)
	log.Printf("[publisher] mqtt disconnected")
}

// Publisher emits best-effort "paid" signals over the broker.
type Publisher struct {
	dial  Dialer
	topic string

	// sleep is swapped in tests to skip real backoff waits.
	sleep func(time.Duration)
}

// NewPublisher binds a dialer to the signal topic.
func NewPublisher(dial Dialer, topic string) *Publisher {
	return &Publisher{
		dial:  dial,
		topic: topic,
		sleep: time.Sleep,
	}
}

// PublishPaid publishes the paid signal, retrying with a fixed backoff up
// to maxAttempts. Every attempt dials a brand-new connection and tears it
// down on exit, success or failure. Returns overall success.
func (p *Publisher) PublishPaid(maxAttempts int, backoff time.Duration) bool {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if p.tryOnce() {
			return true
		}
		if attempt < maxAttempts {
			p.sleep(backoff)
		}
	}
	return false
}

func (p *Publisher) tryOnce() bool {
	conn, err := p.dial()
	if err != nil {
		log.Printf("[publisher] WARN: mqtt attempt failed: %v", err)
		return false
	}
	defer conn.Disconnect()

	if err := conn.Publish(p.topic, Payload); err != nil {
		log.Printf("[publisher] WARN: mqtt attempt failed: %v", err)
		return false
	}
	log.Printf("[publisher] mqtt publish successful")
	return true
}
