package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"smartroom-analytics/internal/models"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("telemetry decodes documents", func(mt *mtest.T) {
		ts := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "device_id", Value: "room_01"},
				{Key: "timestamp", Value: primitive.NewDateTimeFromTime(ts)},
				{Key: "occupied", Value: int32(1)},
			},
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "device_id", Value: "room_01"},
				{Key: "timestamp", Value: "2025-03-10T08:00:05"},
				{Key: "fan", Value: 1.0},
			},
		))

		s := NewMongoStoreFromCollections(mt.Coll, mt.Coll)
		records, err := s.Telemetry(context.Background(), "room_01")
		require.NoError(mt, err)
		require.Len(mt, records, 2)

		_, hasID := records[0]["_id"]
		assert.False(mt, hasID)
		got, ok := records[0]["timestamp"].(time.Time)
		require.True(mt, ok)
		assert.True(mt, ts.Equal(got))

		snapshots, err := models.ParseTelemetryRecords(records)
		require.NoError(mt, err)
		assert.True(mt, snapshots[0].Occupied)
		assert.True(mt, snapshots[1].Fan)
	})

	mt.Run("insert telemetry", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		s := NewMongoStoreFromCollections(mt.Coll, mt.Coll)
		err := s.InsertTelemetry(context.Background(), []models.Record{
			{"device_id": "room_01", "timestamp": "2025-03-10T08:00:00Z", "occupied": 1},
		})
		assert.NoError(mt, err)
	})

	mt.Run("insert error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		s := NewMongoStoreFromCollections(mt.Coll, mt.Coll)
		err := s.InsertEvents(context.Background(), []models.Record{
			{"device_id": "room_01", "event": "AUTO_ON"},
		})
		assert.Error(mt, err)
	})

	mt.Run("devices", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "values", Value: bson.A{"room_02", "room_01", ""}},
		))

		s := NewMongoStoreFromCollections(mt.Coll, mt.Coll)
		devices, err := s.Devices(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []string{"room_01", "room_02"}, devices)
	})
}
