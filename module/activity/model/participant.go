package model

// Participation status values. Only approved participants (and the host)
// may read or write the activity's chat room.
const (
	ParticipantPending  = "pending"
	ParticipantApproved = "approved"
	ParticipantRejected = "rejected"
)

// Participant is one user's join state for one activity.
type Participant struct {
	ID         int64  `json:"id"`
	ActivityID int64  `json:"activityId"`
	UserID     int64  `json:"userId"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"createdAt"` // Unix ms
}

func (*Participant) TableName() string { return "participants" }
