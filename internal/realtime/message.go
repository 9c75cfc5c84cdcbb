package realtime

import (
	"encoding/json"

	"github.com/campusdesk/officehours/internal/events"
	"github.com/campusdesk/officehours/internal/wire"
)

// MessageType identifies a frame pushed over the live channel.
type MessageType string

const (
	MessageInitialData    MessageType = "initial_data"
	MessageFacultyAdded   MessageType = MessageType(events.EventFacultyAdded)
	MessageStatusUpdated  MessageType = MessageType(events.EventStatusUpdated)
	MessageFacultyRemoved MessageType = MessageType(events.EventFacultyRemoved)
)

// Message is the envelope of every frame: {"type": ..., "data": ...}.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// MessageFromEvent translates a domain event into the frame subscribers see.
func MessageFromEvent(event events.Event) (Message, bool) {
	switch payload := event.Payload.(type) {
	case events.RecordPayload:
		if event.Type != events.EventFacultyAdded && event.Type != events.EventStatusUpdated {
			return Message{}, false
		}
		return Message{Type: MessageType(event.Type), Data: wire.NewFaculty(payload.Record)}, true
	case events.RemovedPayload:
		if event.Type != events.EventFacultyRemoved {
			return Message{}, false
		}
		return Message{Type: MessageFacultyRemoved, Data: payload}, true
	}
	return Message{}, false
}

func encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
