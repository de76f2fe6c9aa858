package model

import "time"

const MsgTableName = "messages"

// MsgDocModel is the message document persisted per chat send. Immutable
// once written: the gateway appends and reads, never mutates or deletes.
type MsgDocModel struct {
	ID         int64  `bson:"_id"`         // snowflake
	ActivityID int64  `bson:"activity_id"` // room key
	SenderID   int64  `bson:"sender_id"`
	Content    string `bson:"content"`
	CreatedAt  int64  `bson:"created_at"` // Unix ms
}

func (*MsgDocModel) TableName() string { return MsgTableName }

// Message is what CreateMessage hands back to the protocol layer.
type Message struct {
	ID        int64
	CreatedAt time.Time
}

// ChatMessage is the sender-enriched view used for the recent-window sync
// and for broadcast frames.
type ChatMessage struct {
	ID         int64     `json:"id"`
	ActivityID int64     `json:"activityId"`
	SenderID   int64     `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"timestamp"`
}
