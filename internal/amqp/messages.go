package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind says what happened to a transaction.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

var ErrMalformedEvent = errors.New("malformed transaction event")

// TransactionEvent announces a change to one owner's transactions. It
// carries only identifiers; consumers recompute whatever they need from
// storage.
type TransactionEvent struct {
	EventID       string    `json:"event_id"`
	Kind          EventKind `json:"kind"`
	OwnerID       int64     `json:"owner_id"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, ownerID, transactionID int64) *TransactionEvent {
	return &TransactionEvent{
		EventID:       uuid.NewString(),
		Kind:          kind,
		OwnerID:       ownerID,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

func (k EventKind) IsValid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	default:
		return false
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if _, err := uuid.Parse(e.EventID); err != nil {
		return nil, fmt.Errorf("%w: event_id: %v", ErrMalformedEvent, err)
	}
	if !e.Kind.IsValid() {
		return nil, fmt.Errorf("%w: kind %q", ErrMalformedEvent, e.Kind)
	}
	if e.OwnerID == 0 {
		return nil, fmt.Errorf("%w: missing owner_id", ErrMalformedEvent)
	}
	return &e, nil
}
