package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dukerupert/billfold/internal/model"
)

// DueBillsMessage carries everything a worker needs to notify one owner,
// so delivery doesn't depend on database access.
type DueBillsMessage struct {
	Recipient model.Recipient      `json:"recipient"`
	Bills     []model.BillReminder `json:"bills"`
	Today     model.Date           `json:"today"`
	Timestamp time.Time            `json:"timestamp"`
}

func NewDueBillsMessage(r model.Recipient, bills []model.BillReminder, today model.Date) DueBillsMessage {
	return DueBillsMessage{
		Recipient: r,
		Bills:     bills,
		Today:     today,
		Timestamp: time.Now().UTC(),
	}
}

func (m DueBillsMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DueBillsMessageFromJSON decodes and sanity-checks a message body.
func DueBillsMessageFromJSON(data []byte) (*DueBillsMessage, error) {
	var msg DueBillsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Recipient.UserID == 0 {
		return nil, errors.New("message has no recipient")
	}
	if len(msg.Bills) == 0 {
		return nil, errors.New("message has no bills")
	}
	if msg.Today.IsZero() {
		return nil, errors.New("message has no date")
	}
	return &msg, nil
}
