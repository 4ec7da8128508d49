package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordEvent announces that a ledger record changed. It carries only the
// id and the operation; consumers read the current ledger from the slot.
type RecordEvent struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// Record operations carried by events. OpImport has no single id.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpComplete = "complete"
	OpRestore  = "restore"
	OpDelete   = "delete"
	OpImport   = "import"
)

// NewRecordEvent creates an event stamped with the current time
func NewRecordEvent(id, op string) *RecordEvent {
	return &RecordEvent{
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes an event. An event without an operation is
// rejected so malformed deliveries are dropped rather than retried.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var event RecordEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.Op == "" {
		return nil, fmt.Errorf("record event without op")
	}
	return &event, nil
}
