package store

import (
	"context"
	"time"

	"AProject/module/activity/model"
	"AProject/tools/errs"
	"AProject/tools/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultRecentLimit = 50

// Store is the storage gateway backing the chat core: activity/participant
// rows live in Postgres, message documents in MongoDB.
type Store struct {
	msgs *mongo.Collection
	pool *pgxpool.Pool
}

func NewStore(db *mongo.Database, pool *pgxpool.Pool) *Store {
	return &Store{
		msgs: db.Collection(model.MsgTableName),
		pool: pool,
	}
}

// CanUserAccessChat is the room authorization predicate: host of the
// activity, or a participant with approved status. Evaluated fresh on every
// call; results must not be cached by callers.
func (s *Store) CanUserAccessChat(ctx context.Context, userID, activityID int64) (bool, error) {
	const q = `
SELECT EXISTS (SELECT 1 FROM activities   WHERE id = $1 AND host_id = $2)
    OR EXISTS (SELECT 1 FROM participants WHERE activity_id = $1 AND user_id = $2 AND status = $3)`
	var ok bool
	if err := s.pool.QueryRow(ctx, q, activityID, userID, model.ParticipantApproved).Scan(&ok); err != nil {
		return false, errs.Wrapf(err, "access check activity=%d user=%d", activityID, userID)
	}
	return ok, nil
}

// CreateMessage persists one chat message and returns its id and creation
// time. The document is immutable once written.
func (s *Store) CreateMessage(ctx context.Context, activityID, senderID int64, content string) (*model.Message, error) {
	now := time.Now()
	doc := &model.MsgDocModel{
		ID:         ids.Generate(),
		ActivityID: activityID,
		SenderID:   senderID,
		Content:    content,
		CreatedAt:  now.UnixMilli(),
	}
	if _, err := s.msgs.InsertOne(ctx, doc); err != nil {
		return nil, errs.Wrapf(err, "insert message activity=%d sender=%d", activityID, senderID)
	}
	return &model.Message{ID: doc.ID, CreatedAt: now}, nil
}

// RecentMessages returns the newest `limit` messages of a room in ascending
// creation order, enriched with sender display names.
func (s *Store) RecentMessages(ctx context.Context, activityID int64, limit int64) ([]*model.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.msgs.Find(ctx, bson.M{"activity_id": activityID}, opts)
	if err != nil {
		return nil, errs.Wrapf(err, "find messages activity=%d", activityID)
	}
	var docs []*model.MsgDocModel
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errs.Wrap(err, "decode messages")
	}

	names, err := s.usernamesFor(ctx, docs)
	if err != nil {
		return nil, err
	}

	// newest-first from mongo, the window syncs oldest-first
	out := make([]*model.ChatMessage, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		d := docs[i]
		out = append(out, &model.ChatMessage{
			ID:         d.ID,
			ActivityID: d.ActivityID,
			SenderID:   d.SenderID,
			SenderName: names[d.SenderID],
			Content:    d.Content,
			CreatedAt:  time.UnixMilli(d.CreatedAt),
		})
	}
	return out, nil
}

// GetUser loads the display slice of a user row.
func (s *Store) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	const q = `SELECT id, username, COALESCE(avatar_url, '') FROM users WHERE id = $1`
	u := &model.User{}
	err := s.pool.QueryRow(ctx, q, userID).Scan(&u.ID, &u.Username, &u.AvatarURL)
	if err == pgx.ErrNoRows {
		return nil, errs.ErrRecordNotFound.WithDetail("user not found")
	}
	if err != nil {
		return nil, errs.Wrapf(err, "get user id=%d", userID)
	}
	return u, nil
}

func (s *Store) usernamesFor(ctx context.Context, docs []*model.MsgDocModel) (map[int64]string, error) {
	names := make(map[int64]string)
	if len(docs) == 0 {
		return names, nil
	}
	seen := make(map[int64]struct{}, len(docs))
	senders := make([]int64, 0, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.SenderID]; ok {
			continue
		}
		seen[d.SenderID] = struct{}{}
		senders = append(senders, d.SenderID)
	}

	rows, err := s.pool.Query(ctx, `SELECT id, username FROM users WHERE id = ANY($1)`, senders)
	if err != nil {
		return nil, errs.Wrap(err, "load sender names")
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, errs.Wrap(err, "scan sender name")
		}
		names[id] = name
	}
	return names, rows.Err()
}
