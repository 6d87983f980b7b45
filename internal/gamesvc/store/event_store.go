package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/bingo-rooms/internal/gamesvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const EventsCollection = "room_events"

// EventStore appends room events to a mongo collection that expires them
// through a TTL index on expires_at.
type EventStore struct {
	coll *mongo.Collection
	ttl  time.Duration
}

func NewEventStore(db *mongo.Database, ttl time.Duration) *EventStore {
	return &EventStore{coll: db.Collection(EventsCollection), ttl: ttl}
}

func (s *EventStore) LogEvent(ctx context.Context, event models.RoomEvent) error {
	event = s.stamp(event, time.Now())

	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert room event: %w", err)
	}
	return nil
}

// stamp fills CreatedAt when unset and sets the expiry the TTL index acts on.
func (s *EventStore) stamp(event models.RoomEvent, now time.Time) models.RoomEvent {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.ExpiresAt = event.CreatedAt.Add(s.ttl)
	return event
}

// EventsByRoom returns the latest events of a room, newest first.
func (s *EventStore) EventsByRoom(ctx context.Context, roomName string, limit int64) ([]models.RoomEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(historyLimit(int(limit))))

	cur, err := s.coll.Find(ctx, bson.M{"room_name": roomName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find room events: %w", err)
	}
	defer cur.Close(ctx)

	var events []models.RoomEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode room events: %w", err)
	}
	return events, nil
}
