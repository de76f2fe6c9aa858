package notify

import (
	"context"
	"fmt"
	"time"

	"AProject/logger"
	"AProject/service/chat"
	"AProject/tools/decode"
	"AProject/tools/errs"

	"github.com/google/uuid"
)

// Notification data type discriminators carried in data["type"].
const (
	TypeJoinRequest     = "join_request"
	TypeRequestApproved = "request_approved"
	TypeRequestRejected = "request_rejected"
	TypeNewReview       = "new_review"
)

// JoinRequestData is the structured payload for a join-request notification.
type JoinRequestData struct {
	Type       string `json:"type"`
	ActivityID int64  `json:"activityId"`
	Applicant  string `json:"applicant"`
}

// DecisionData covers approval/rejection payloads.
type DecisionData struct {
	Type       string `json:"type"`
	ActivityID int64  `json:"activityId"`
}

// ReviewData is the payload for a new-review notification.
type ReviewData struct {
	Type       string `json:"type"`
	ActivityID int64  `json:"activityId"`
	Reviewer   string `json:"reviewer"`
}

// PresenceReader reports whether a user holds any live connection mark.
// Informational only, never an authorization input.
type PresenceReader interface {
	IsOnline(ctx context.Context, userID int64) (bool, error)
}

// Service turns REST-side events into notification frames and pushes them
// through the injected dispatcher. Delivery is ephemeral: recipients with
// no live connection get nothing, and that is fine here.
type Service struct {
	notifier chat.Notifier
	presence PresenceReader // optional
}

func NewService(n chat.Notifier, presence PresenceReader) *Service {
	return &Service{notifier: n, presence: presence}
}

// Send validates and delivers a free-form notification. Each delivery gets
// its own id and timestamp.
func (s *Service) Send(recipientID int64, message string, data map[string]any) error {
	if recipientID <= 0 || message == "" {
		return errs.ErrArgs.WithDetail("recipientId and message are required")
	}
	if data == nil {
		data = map[string]any{}
	}
	typ, err := decode.ReadString(data, "type")
	if err != nil {
		return errs.ErrArgs.WithDetail("data.type is required")
	}
	if err := validateData(typ, data); err != nil {
		return err
	}

	payload := chat.BuildNotificationFrame(
		uuid.NewString(),
		message,
		time.Now().Format(time.RFC3339),
		data,
	)
	s.notifier.NotifyUser(recipientID, payload)

	if s.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if on, err := s.presence.IsOnline(ctx, recipientID); err == nil && !on {
			logger.Infof("[notify] recipient=%d has no live connection, dropped", recipientID)
		}
		cancel()
	}
	return nil
}

// validateData decodes known payload kinds into their typed shape so a
// malformed producer call fails at the API instead of on a client screen.
// Unknown kinds pass through untouched.
func validateData(typ string, data map[string]any) error {
	switch typ {
	case TypeJoinRequest:
		p, err := decode.DecodeMap[JoinRequestData](data)
		if err != nil || p.ActivityID <= 0 {
			return errs.ErrArgs.WithDetail("bad join_request data")
		}
	case TypeRequestApproved, TypeRequestRejected:
		p, err := decode.DecodeMap[DecisionData](data)
		if err != nil || p.ActivityID <= 0 {
			return errs.ErrArgs.WithDetail("bad decision data")
		}
	case TypeNewReview:
		p, err := decode.DecodeMap[ReviewData](data)
		if err != nil || p.ActivityID <= 0 {
			return errs.ErrArgs.WithDetail("bad new_review data")
		}
	}
	return nil
}

// JoinRequested notifies an activity host that someone asked to join.
func (s *Service) JoinRequested(hostID, activityID int64, applicant string) error {
	return s.Send(hostID,
		fmt.Sprintf("%s requested to join", applicant),
		map[string]any{"type": TypeJoinRequest, "activityId": activityID, "applicant": applicant},
	)
}

// RequestApproved notifies an applicant their request went through.
func (s *Service) RequestApproved(userID, activityID int64) error {
	return s.Send(userID,
		"your join request was approved",
		map[string]any{"type": TypeRequestApproved, "activityId": activityID},
	)
}

// RequestRejected notifies an applicant their request was declined.
func (s *Service) RequestRejected(userID, activityID int64) error {
	return s.Send(userID,
		"your join request was rejected",
		map[string]any{"type": TypeRequestRejected, "activityId": activityID},
	)
}

// ReviewPosted notifies a host about a new review.
func (s *Service) ReviewPosted(hostID, activityID int64, reviewer string) error {
	err := s.Send(hostID,
		fmt.Sprintf("%s posted a review", reviewer),
		map[string]any{"type": TypeNewReview, "activityId": activityID, "reviewer": reviewer},
	)
	if err != nil {
		logger.Infof("[notify] review notification host=%d err=%v", hostID, err)
	}
	return err
}
