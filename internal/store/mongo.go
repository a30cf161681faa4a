package store

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"smartroom-analytics/internal/models"
)

const (
	connectTimeout = 10 * time.Second
	insertTimeout  = 30 * time.Second
)

// MongoStore хранит телеметрию и события в MongoDB
type MongoStore struct {
	client    *mongo.Client
	telemetry *mongo.Collection
	events    *mongo.Collection
}

// NewMongoStore подключается к MongoDB и проверяет соединение
func NewMongoStore(uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("Connected to MongoDB database %q", database)
	db := client.Database(database)
	return &MongoStore{
		client:    client,
		telemetry: db.Collection(TelemetryCollection),
		events:    db.Collection(EventsCollection),
	}, nil
}

// NewMongoStoreFromCollections создает хранилище поверх готовых коллекций
func NewMongoStoreFromCollections(telemetry, events *mongo.Collection) *MongoStore {
	return &MongoStore{
		telemetry: telemetry,
		events:    events,
	}
}

// Telemetry возвращает телеметрию устройства по возрастанию timestamp
func (s *MongoStore) Telemetry(ctx context.Context, deviceID string) ([]models.Record, error) {
	return s.find(ctx, s.telemetry, deviceID)
}

// Events возвращает события устройства по возрастанию timestamp
func (s *MongoStore) Events(ctx context.Context, deviceID string) ([]models.Record, error) {
	return s.find(ctx, s.events, deviceID)
}

func (s *MongoStore) find(ctx context.Context, coll *mongo.Collection, deviceID string) ([]models.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: models.KeyTimestamp, Value: 1}})
	cursor, err := coll.Find(ctx, bson.M{models.KeyDeviceID: deviceID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}

	records := make([]models.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, fromDocument(d))
	}
	return records, nil
}

// InsertTelemetry сохраняет снимки телеметрии
func (s *MongoStore) InsertTelemetry(ctx context.Context, records []models.Record) error {
	return s.insert(ctx, s.telemetry, records)
}

// InsertEvents сохраняет события
func (s *MongoStore) InsertEvents(ctx context.Context, records []models.Record) error {
	return s.insert(ctx, s.events, records)
}

func (s *MongoStore) insert(ctx context.Context, coll *mongo.Collection, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	documents := make([]interface{}, 0, len(records))
	for _, r := range records {
		documents = append(documents, bson.M(r))
	}

	insertCtx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	res, err := coll.InsertMany(insertCtx, documents)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", coll.Name(), err)
	}

	log.Printf("Inserted %d documents into %s", len(res.InsertedIDs), coll.Name())
	return nil
}

// Devices возвращает отсортированный список устройств, присылавших телеметрию
func (s *MongoStore) Devices(ctx context.Context) ([]string, error) {
	values, err := s.telemetry.Distinct(ctx, models.KeyDeviceID, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok && id != "" {
			devices = append(devices, id)
		}
	}
	sort.Strings(devices)
	return devices, nil
}

// Ping проверяет соединение с MongoDB
func (s *MongoStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close закрывает соединение
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client != nil {
		return s.client.Disconnect(ctx)
	}
	return nil
}

// fromDocument приводит BSON документ к обычным значениям Go
func fromDocument(d bson.M) models.Record {
	r := make(models.Record, len(d))
	for k, v := range d {
		if k == "_id" {
			continue
		}
		switch x := v.(type) {
		case primitive.DateTime:
			r[k] = x.Time().UTC()
		case primitive.Timestamp:
			r[k] = time.Unix(int64(x.T), 0).UTC()
		default:
			r[k] = v
		}
	}
	return r
}
