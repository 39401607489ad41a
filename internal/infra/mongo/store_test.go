package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"learnlink-server/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestDocumentStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get decodes without _id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "learnlink.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "email", Value: "ada@example.com"},
			{Key: "currentStreak", Value: int32(3)},
		}))

		raw, err := NewDocumentStore(mt.DB).Get(context.Background(), "users", "u1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if _, ok := doc["_id"]; ok {
			t.Error("expected _id to be stripped")
		}
		if doc["email"] != "ada@example.com" || doc["currentStreak"] != 3.0 {
			t.Errorf("unexpected document %v", doc)
		}
	})

	mt.Run("get missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "learnlink.users", mtest.FirstBatch))

		_, err := NewDocumentStore(mt.DB).Get(context.Background(), "users", "nope")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("merge unmatched", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := NewDocumentStore(mt.DB).Merge(context.Background(), "users", "nope", map[string]interface{}{"stats.totalTimeSpent": 1})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("merge matched", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := NewDocumentStore(mt.DB).Merge(context.Background(), "users", "u1", map[string]interface{}{"stats.totalTimeSpent": 1})
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
	})

	mt.Run("find by field", func(mt *mtest.T) {
		first := mtest.CreateCursorResponse(1, "learnlink.files", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "f1"}, {Key: "userId", Value: "u1"}},
			bson.D{{Key: "_id", Value: "f2"}, {Key: "userId", Value: "u1"}},
		)
		end := mtest.CreateCursorResponse(0, "learnlink.files", mtest.NextBatch)
		mt.AddMockResponses(first, end)

		docs, err := NewDocumentStore(mt.DB).FindByField(context.Background(), "files", "userId", "u1")
		if err != nil {
			t.Fatalf("FindByField() error = %v", err)
		}
		if len(docs) != 2 || docs[0].ID != "f1" || docs[1].ID != "f2" {
			t.Fatalf("unexpected documents %+v", docs)
		}
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := NewDocumentStore(mt.DB).Delete(context.Background(), "users", "nope")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
