package natsx

import (
	"AProject/logger"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// Subjects for cross-gateway frame relay. Every gateway node both publishes
// and subscribes; envelopes carry the origin node id so a node never
// re-delivers its own traffic.
const (
	SubjectRoomBroadcast = "activity.room.broadcast"
	SubjectUserNotify    = "activity.user.notify"
)

// Envelope is the relayed unit: target key plus the already-serialized
// outbound frame.
type Envelope struct {
	Origin  string          `json:"origin"`
	Target  int64           `json:"target"` // room id or user id per subject
	Payload json.RawMessage `json:"payload"`
}

// Relay fans frames across gateway nodes. It implements chat.Relay.
type Relay struct {
	cli  *NatsxClient
	gwID string
	subs []*nats.Subscription
}

func NewRelay(cli *NatsxClient, gwID string) *Relay {
	return &Relay{cli: cli, gwID: gwID}
}

func (r *Relay) PublishRoom(roomID int64, payload []byte) error {
	return r.publish(SubjectRoomBroadcast, roomID, payload)
}

func (r *Relay) PublishUser(userID int64, payload []byte) error {
	return r.publish(SubjectUserNotify, userID, payload)
}

func (r *Relay) publish(subject string, target int64, payload []byte) error {
	env := Envelope{Origin: r.gwID, Target: target, Payload: payload}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.cli.Conn().Publish(subject, b)
}

// SubscribeRoom wires remote room broadcasts into a local delivery func.
func (r *Relay) SubscribeRoom(deliver func(roomID int64, payload []byte)) error {
	return r.subscribe(SubjectRoomBroadcast, deliver)
}

// SubscribeUser wires remote user notifications into a local delivery func.
func (r *Relay) SubscribeUser(deliver func(userID int64, payload []byte)) error {
	return r.subscribe(SubjectUserNotify, deliver)
}

func (r *Relay) subscribe(subject string, deliver func(target int64, payload []byte)) error {
	sub, err := r.cli.Conn().Subscribe(subject, func(m *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			logger.Infof("[natsx] drop bad envelope on %s: %v", subject, err)
			return
		}
		if env.Origin == r.gwID {
			return // our own publish, already delivered locally
		}
		deliver(env.Target, env.Payload)
	})
	if err != nil {
		return err
	}
	r.subs = append(r.subs, sub)
	return nil
}

// Close drains the subscriptions.
func (r *Relay) Close() {
	for _, s := range r.subs {
		if err := s.Drain(); err != nil {
			logger.Infof("[natsx] drain sub err: %v", err)
		}
	}
}
