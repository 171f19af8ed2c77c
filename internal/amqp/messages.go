package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"peatracker/internal/store"
)

// Operation is the kind of change a replication message announces.
type Operation string

const (
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// ErrInvalidMessage marks messages that can never be processed. They are
// rejected without requeue.
var ErrInvalidMessage = errors.New("invalid replication message")

// ReplicationMessage announces a change to one record of the local cache.
// It carries only the record key; the worker reads the record itself from
// the cache so that a late message always replicates the latest state.
type ReplicationMessage struct {
	Collection store.Collection `json:"collection"`
	Operation  Operation        `json:"operation"`
	Key        string           `json:"key,omitempty"`
	UserID     string           `json:"user_id"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewReplicationMessage creates a message stamped with the current time.
func NewReplicationMessage(userID string, collection store.Collection, op Operation, key string) *ReplicationMessage {
	return &ReplicationMessage{
		Collection: collection,
		Operation:  op,
		Key:        key,
		UserID:     userID,
		Timestamp:  time.Now(),
	}
}

// Validate checks the message can be applied.
func (m *ReplicationMessage) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidMessage)
	}
	if !m.Collection.IsValid() {
		return fmt.Errorf("%w: unknown collection %q", ErrInvalidMessage, m.Collection)
	}
	if m.Operation != OpUpsert && m.Operation != OpDelete {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidMessage, m.Operation)
	}
	keyed := m.Collection == store.CollectionEntries || m.Collection == store.CollectionDeposits
	if keyed && m.Key == "" {
		return fmt.Errorf("%w: %s %s without key", ErrInvalidMessage, m.Collection, m.Operation)
	}
	if m.Collection == store.CollectionSchedule && m.Operation == OpDelete {
		return fmt.Errorf("%w: schedule cannot be deleted", ErrInvalidMessage)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ReplicationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReplicationMessageFromJSON decodes a message.
func ReplicationMessageFromJSON(data []byte) (*ReplicationMessage, error) {
	var msg ReplicationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
