package model

// Activity is the relational row for a hosted activity. The chat room for
// an activity shares its id; the room itself is not a stored entity.
type Activity struct {
	ID        int64  `json:"id"`
	HostID    int64  `json:"hostId"`
	Title     string `json:"title"`
	Latitude  float64
	Longitude float64
	CreatedAt int64 `json:"createdAt"` // Unix ms
}

func (*Activity) TableName() string { return "activities" }
