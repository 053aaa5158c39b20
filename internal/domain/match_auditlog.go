package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MatchAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType MatchEventType `bson:"event_type" json:"eventType"`
	Identity  string         `bson:"identity,omitempty" json:"identity,omitempty"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type MatchAuditRepository interface {
	Log(ctx context.Context, log *MatchAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]MatchAuditLog, error)
	GetByEventType(ctx context.Context, eventType MatchEventType, from, to time.Time) ([]MatchAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

// NewMatchAuditLog flattens a MatchEvent into an audit document.
func NewMatchAuditLog(event MatchEvent) *MatchAuditLog {
	metadata := map[string]any{
		"occupants": event.Occupants,
		"status":    string(event.Status),
	}
	if event.Team != "" {
		metadata["team"] = string(event.Team)
	}
	if event.Slot != nil {
		metadata["slot"] = *event.Slot
	}
	if event.ProblemID != "" {
		metadata["problem_id"] = event.ProblemID
	}
	if event.Reason != "" {
		metadata["reason"] = event.Reason
	}
	if event.Accepted != nil {
		metadata["accepted"] = *event.Accepted
	}

	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return &MatchAuditLog{
		ID:        uuid.NewString(),
		RoomID:    event.RoomID,
		EventType: event.Type,
		Identity:  event.Identity,
		Timestamp: ts,
		Metadata:  metadata,
	}
}
