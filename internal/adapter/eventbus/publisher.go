package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

const scanSubject = "iocs.scanned"

// ScanEvent is the message published for every completed scan.
type ScanEvent struct {
	ScanID    string       `json:"scan_id"`
	ScannedAt time.Time    `json:"scanned_at"`
	Count     int          `json:"count"`
	IOCs      []domain.IOC `json:"iocs"`
}

type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(natsURL string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)

	if err != nil {
		return nil, err
	}

	log.Printf("📡 Connected to NATS at %s", natsURL)

	return &Publisher{
		conn: conn,
	}, nil
}

// PublishScan pushes the scan's records onto the event bus so
// downstream consumers (SIEM forwarders, enrichment jobs) can react.
func (p *Publisher) PublishScan(scanID string, iocs []domain.IOC) error {
	event := ScanEvent{
		ScanID:    scanID,
		ScannedAt: time.Now().UTC(),
		Count:     len(iocs),
		IOCs:      iocs,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(scanSubject, data); err != nil {
		return err
	}

	log.Printf("📡 Published scan %s (%d records) to event bus", scanID, len(iocs))

	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		log.Printf("📡 Disconnected from NATS")
	}
}

func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
