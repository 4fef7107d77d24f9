package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

// FailedEventRepoMongoDB variante MongoDB del almacén durable de eventos
// fallidos.
type FailedEventRepoMongoDB struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewFailedEventRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*FailedEventRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	return &FailedEventRepoMongoDB{
		client: client,
		coll:   client.Database(dbName).Collection("failed_events"),
	}, nil
}

var _ sharedDomain.FailedEventRepository = (*FailedEventRepoMongoDB)(nil)

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoFailedEvent struct {
	EventID      string     `bson:"_id"`
	TargetID     string     `bson:"targetId"`
	EventType    string     `bson:"eventType"`
	Payload      []byte     `bson:"payload"`
	RetryCount   int        `bson:"retryCount"`
	Status       string     `bson:"status"`
	ErrorMessage string     `bson:"errorMessage"`
	OccurredAt   time.Time  `bson:"occurredAt"`
	CreatedAt    time.Time  `bson:"createdAt"`
	LastRetryAt  *time.Time `bson:"lastRetryAt,omitempty"`
	CompletedAt  *time.Time `bson:"completedAt,omitempty"`
}

func toMongoFailedEvent(fe *sharedDomain.FailedEvent) mongoFailedEvent {
	return mongoFailedEvent{
		EventID:      fe.EventID,
		TargetID:     fe.TargetID,
		EventType:    fe.EventType,
		Payload:      fe.Payload,
		RetryCount:   fe.RetryCount,
		Status:       string(fe.Status),
		ErrorMessage: fe.ErrorMessage,
		OccurredAt:   fe.OccurredAt,
		CreatedAt:    fe.CreatedAt,
		LastRetryAt:  fe.LastRetryAt,
		CompletedAt:  fe.CompletedAt,
	}
}

func fromMongoFailedEvent(m mongoFailedEvent) *sharedDomain.FailedEvent {
	return &sharedDomain.FailedEvent{
		EventID:      m.EventID,
		TargetID:     m.TargetID,
		EventType:    m.EventType,
		Payload:      m.Payload,
		RetryCount:   m.RetryCount,
		Status:       sharedDomain.FailedEventStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		OccurredAt:   m.OccurredAt,
		CreatedAt:    m.CreatedAt,
		LastRetryAt:  m.LastRetryAt,
		CompletedAt:  m.CompletedAt,
	}
}

// --- Métodos ---

func (r *FailedEventRepoMongoDB) Save(ctx context.Context, fe *sharedDomain.FailedEvent) error {
	_, err := r.coll.InsertOne(ctx, toMongoFailedEvent(fe))
	if mongo.IsDuplicateKeyError(err) {
		// El _id es el event_id: la promoción repetida es un no-op.
		return sharedDomain.ErrFailedEventExists
	}
	return err
}

func (r *FailedEventRepoMongoDB) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": eventID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *FailedEventRepoMongoDB) FetchPending(ctx context.Context, limit int) ([]*sharedDomain.FailedEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"status": string(sharedDomain.FailedEventPending)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []*sharedDomain.FailedEvent
	for cursor.Next(ctx) {
		var m mongoFailedEvent
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		result = append(result, fromMongoFailedEvent(m))
	}
	return result, cursor.Err()
}

func (r *FailedEventRepoMongoDB) Update(ctx context.Context, fe *sharedDomain.FailedEvent) error {
	update := bson.M{"$set": bson.M{
		"retryCount":   fe.RetryCount,
		"status":       string(fe.Status),
		"errorMessage": fe.ErrorMessage,
		"lastRetryAt":  fe.LastRetryAt,
		"completedAt":  fe.CompletedAt,
	}}
	res, err := r.coll.UpdateByID(ctx, fe.EventID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
