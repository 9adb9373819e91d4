package notifications

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// FeedSubject is the NATS subject feed events are mirrored to.
const FeedSubject = "scribe.feed"

// NatsMirror republishes feed events on NATS for other services.
type NatsMirror struct {
	conn *nats.Conn
}

// ConnectNats dials url with a short retry loop. An empty url disables the
// mirror and returns (nil, nil).
func ConnectNats(url string) (*NatsMirror, error) {
	if url == "" {
		return nil, nil
	}

	var conn *nats.Conn
	var err error
	for i := 0; i < 5; i++ {
		conn, err = nats.Connect(url, nats.Name("scribe"))
		if err == nil {
			log.Println("Connected to NATS")
			return &NatsMirror{conn: conn}, nil
		}
		log.Printf("Waiting for NATS... (%d/5): %v", i+1, err)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
}

// NewNatsMirror wraps an existing connection.
func NewNatsMirror(conn *nats.Conn) *NatsMirror {
	return &NatsMirror{conn: conn}
}

// Publish sends payload on FeedSubject. A nil mirror is a no-op.
func (m *NatsMirror) Publish(payload []byte) error {
	if m == nil || m.conn == nil {
		return nil
	}
	return m.conn.Publish(FeedSubject, payload)
}

// Close drains and closes the connection.
func (m *NatsMirror) Close() {
	if m == nil || m.conn == nil {
		return
	}
	if err := m.conn.Drain(); err != nil {
		m.conn.Close()
	}
}
