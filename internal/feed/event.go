// Package feed propagates committed row changes to live subscribers.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Event describes one committed change. ClientID is the owning client, or uuid.Nil
// for rows that belong to no client (admins).
type Event struct {
	Table    string          `json:"table"`
	Type     EventType       `json:"type"`
	New      json.RawMessage `json:"new,omitempty"`
	Old      json.RawMessage `json:"old,omitempty"`
	ClientID uuid.UUID       `json:"client_id"`
	At       time.Time       `json:"at"`
}

// NewEvent marshals the row images. Either image may be nil.
func NewEvent(table string, typ EventType, clientID uuid.UUID, newRow, oldRow any) (Event, error) {
	ev := Event{Table: table, Type: typ, ClientID: clientID, At: time.Now().UTC()}

	var err error
	if newRow != nil {
		if ev.New, err = json.Marshal(newRow); err != nil {
			return Event{}, fmt.Errorf("marshal new row: %w", err)
		}
	}
	if oldRow != nil {
		if ev.Old, err = json.Marshal(oldRow); err != nil {
			return Event{}, fmt.Errorf("marshal old row: %w", err)
		}
	}
	return ev, nil
}

// Publisher accepts committed changes. Publishing never fails the mutation that
// produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
