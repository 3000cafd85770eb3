// Package sse streams plant collection changes to connected clients as Server-Sent Events.
package sse

import (
	"time"

	"github.com/listenupapp/plantcare/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventPlantCreated is sent after a plant is added.
	EventPlantCreated EventType = "plant.created"
	// EventPlantUpdated is sent after any change to a plant, care dates included.
	EventPlantUpdated EventType = "plant.updated"
	// EventPlantDeleted is sent after a plant is removed.
	EventPlantDeleted EventType = "plant.deleted"
	// EventPlantsLoaded is sent when the active user's list is (re)loaded from storage.
	EventPlantsLoaded EventType = "plants.loaded"
	// EventSessionChanged is sent when the signed-in user changes.
	EventSessionChanged EventType = "session.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID restricts delivery to one user's clients; empty broadcasts to all.
	UserID string `json:"-"`
}

// PlantEventData is the payload of plant.created and plant.updated.
type PlantEventData struct {
	Plant domain.Plant `json:"plant"`
}

// PlantDeletedEventData is the payload of plant.deleted.
type PlantDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	PlantID   string    `json:"plant_id"`
}

// PlantsLoadedEventData is the payload of plants.loaded.
type PlantsLoadedEventData struct {
	Count    int    `json:"count"`
	Revision uint64 `json:"revision"`
	Error    string `json:"error,omitempty"`
}

// SessionChangedEventData is the payload of session.changed. User is nil after sign-out.
type SessionChangedEventData struct {
	User *domain.User `json:"user"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewPlantCreatedEvent creates a plant.created event for the plant's owner.
func NewPlantCreatedEvent(p domain.Plant) Event {
	return Event{
		Type:      EventPlantCreated,
		Data:      PlantEventData{Plant: p},
		Timestamp: time.Now(),
		UserID:    p.UserID,
	}
}

// NewPlantUpdatedEvent creates a plant.updated event for the plant's owner.
func NewPlantUpdatedEvent(p domain.Plant) Event {
	return Event{
		Type:      EventPlantUpdated,
		Data:      PlantEventData{Plant: p},
		Timestamp: time.Now(),
		UserID:    p.UserID,
	}
}

// NewPlantDeletedEvent creates a plant.deleted event.
func NewPlantDeletedEvent(userID, plantID string) Event {
	now := time.Now()
	return Event{
		Type:      EventPlantDeleted,
		Data:      PlantDeletedEventData{PlantID: plantID, DeletedAt: now},
		Timestamp: now,
		UserID:    userID,
	}
}

// NewPlantsLoadedEvent creates a plants.loaded event. loadErr is the store's error field.
func NewPlantsLoadedEvent(userID string, count int, revision uint64, loadErr error) Event {
	data := PlantsLoadedEventData{Count: count, Revision: revision}
	if loadErr != nil {
		data.Error = loadErr.Error()
	}
	return Event{
		Type:      EventPlantsLoaded,
		Data:      data,
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewSessionChangedEvent creates a session.changed event, broadcast to every client.
func NewSessionChangedEvent(user *domain.User) Event {
	return Event{
		Type:      EventSessionChanged,
		Data:      SessionChangedEventData{User: user},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
