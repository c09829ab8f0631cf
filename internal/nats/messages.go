package nats

import (
	"encoding/json"
	"fmt"
)

// Subject prefixes for NATS topics.
const (
	SubjectNotificationsPrefix = "iss-notify.notifications"
	SubjectStatePrefix         = "iss-notify.state"
)

// Notification kinds carried in NotificationMessage.Event.
const (
	EventScheduled = "scheduled"
	EventSent      = "sent"
)

// SubjectNotification returns the subject for a notification kind.
func SubjectNotification(event string) string {
	return fmt.Sprintf("%s.%s", SubjectNotificationsPrefix, event)
}

// SubjectState returns the subject for a component's state changes.
func SubjectState(component string) string {
	return fmt.Sprintf("%s.%s", SubjectStatePrefix, component)
}

// NotificationMessage describes an upcoming or started ISS pass.
type NotificationMessage struct {
	Event           string  `json:"event"` // scheduled, sent
	EventTime       string  `json:"event_time"`
	Timestamp       string  `json:"timestamp"`
	WaitSeconds     float64 `json:"wait_seconds,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	MaxElevation    int     `json:"max_elevation,omitempty"`
	Approach        string  `json:"approach,omitempty"`
	Departure       string  `json:"departure,omitempty"`
}

// Marshal serializes the message to JSON.
func (m NotificationMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// StateMessage represents a scheduler or engine state transition.
type StateMessage struct {
	Component string `json:"component"` // scheduler, animation
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m StateMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalNotification deserializes a NotificationMessage from JSON.
func UnmarshalNotification(data []byte) (NotificationMessage, error) {
	var m NotificationMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalState deserializes a StateMessage from JSON.
func UnmarshalState(data []byte) (StateMessage, error) {
	var m StateMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
