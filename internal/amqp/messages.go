package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// OutgoingsReplacedMessage announces that a person's outgoings were saved.
// It carries only a summary; consumers reload the rows from storage.
type OutgoingsReplacedMessage struct {
	Person     string    `json:"person"`
	Count      int       `json:"count"`
	TotalPence int64     `json:"total_pence"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewOutgoingsReplacedMessage stamps the message with the current time.
func NewOutgoingsReplacedMessage(person string, count int, totalPence int64) *OutgoingsReplacedMessage {
	return &OutgoingsReplacedMessage{
		Person:     person,
		Count:      count,
		TotalPence: totalPence,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *OutgoingsReplacedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OutgoingsReplacedMessageFromJSON decodes and validates a message body.
func OutgoingsReplacedMessageFromJSON(data []byte) (*OutgoingsReplacedMessage, error) {
	var msg OutgoingsReplacedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Person == "" {
		return nil, fmt.Errorf("message has no person")
	}
	return &msg, nil
}
