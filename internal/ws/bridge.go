package ws

import (
	"log"

	"load_profile/internal/pipeline"
)

// Bridge implements pipeline.Callback and broadcasts events to the WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnProgress(p pipeline.Progress) {
	b.broadcast(TypeProfileProgress, ProgressFromEngine(p))
}

func (b *Bridge) OnResult(r *pipeline.Result) {
	b.broadcast(TypeProfileResult, ResultFromEngine(r))
}

func (b *Bridge) OnError(profileID string, err error) {
	b.broadcast(TypeProfileError, ErrorPayload{ProfileID: profileID, Message: err.Error()})
}

func (b *Bridge) broadcast(msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		log.Printf("Error marshaling %s: %v", msgType, err)
		return
	}
	b.hub.Broadcast(msgType, msg)
}
