package chat

import (
	"AProject/logger"
)

// Notifier is the narrow surface the REST layer gets injected with.
type Notifier interface {
	NotifyUser(userID int64, payload []byte)
}

// Relay pushes frames to other gateway nodes. Optional; nil means
// single-node deployment.
type Relay interface {
	PublishRoom(roomID int64, payload []byte) error
	PublishUser(userID int64, payload []byte) error
}

// Broadcaster fans payloads out to the live connections matching a room or
// a user. Delivery is fire-and-forget: no acknowledgement is awaited and a
// slow or closed connection never stalls the rest of the fan-out.
type Broadcaster struct {
	reg    *Registry
	fanout *Fanout
	relay  Relay
}

func NewBroadcaster(reg *Registry, fanout *Fanout, relay Relay) *Broadcaster {
	return &Broadcaster{reg: reg, fanout: fanout, relay: relay}
}

// BroadcastRoom delivers a payload to the room's current subscriber set.
// Enqueue happens inline so two broadcasts issued in persist order reach
// every subscriber's send queue in that same order.
func (b *Broadcaster) BroadcastRoom(roomID int64, payload []byte) {
	b.broadcastRoomLocal(roomID, payload)
	if b.relay != nil {
		if err := b.relay.PublishRoom(roomID, payload); err != nil {
			logger.Errorf("[broadcast] relay room=%d err: %v", roomID, err)
		}
	}
}

// NotifyUser delivers a payload to all of the user's live connections.
// Zero connections is a no-op; there is no queue or retry at this layer.
func (b *Broadcaster) NotifyUser(userID int64, payload []byte) {
	b.NotifyUserLocal(userID, payload)
	if b.relay != nil {
		if err := b.relay.PublishUser(userID, payload); err != nil {
			logger.Errorf("[broadcast] relay user=%d err: %v", userID, err)
		}
	}
}

// BroadcastRoomLocal is the relay-consumer entry: deliver to local
// subscribers only, never re-publish.
func (b *Broadcaster) BroadcastRoomLocal(roomID int64, payload []byte) {
	b.broadcastRoomLocal(roomID, payload)
}

// NotifyUserLocal is the relay-consumer entry for user notifications.
func (b *Broadcaster) NotifyUserLocal(userID int64, payload []byte) {
	b.fanout.Broadcast(b.reg.ListByUser(userID), payload)
}

func (b *Broadcaster) broadcastRoomLocal(roomID int64, payload []byte) {
	for _, c := range b.reg.ListByRoom(roomID) {
		if !c.enqueue(payload) {
			logger.Warnf("[broadcast] send queue full, drop for conn=%s room=%d", c.ConnID, roomID)
		}
	}
}
