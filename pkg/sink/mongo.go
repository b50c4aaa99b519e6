package sink

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dtnitsch/course-crawler/models"
)

// MongoStore keeps courses in a MongoDB collection with a unique index on id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri and prepares database.collection.
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_course_id"),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create id index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// UpsertCourses issues one bulk write of replace-one upserts filtered on id.
func (m *MongoStore) UpsertCourses(ctx context.Context, batch []models.CourseRecord) (updated, inserted int, err error) {
	if len(batch) == 0 {
		return 0, 0, nil
	}
	writes := make([]mongo.WriteModel, 0, len(batch))
	for _, c := range batch {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": c.ID}).
			SetReplacement(c).
			SetUpsert(true))
	}

	res, err := m.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to bulk upsert %d courses: %w", len(batch), err)
	}
	return int(res.MatchedCount), int(res.UpsertedCount), nil
}

func (m *MongoStore) GetCourse(ctx context.Context, id string) (models.CourseRecord, error) {
	var c models.CourseRecord
	err := m.coll.FindOne(ctx, bson.M{"id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.CourseRecord{}, fmt.Errorf("%s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.CourseRecord{}, fmt.Errorf("failed to get course %s: %w", id, err)
	}
	return c, nil
}

func (m *MongoStore) ListCourses(ctx context.Context, q models.CourseQuery) ([]models.CourseRecord, int, error) {
	filter := mongoFilter(q)

	total, err := m.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	opts := options.Find().SetSort(mongoSort(q))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit)).SetSkip(int64(q.Offset))
	}
	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	var courses []models.CourseRecord
	if err := cur.All(ctx, &courses); err != nil {
		return nil, 0, fmt.Errorf("failed to decode courses: %w", err)
	}
	return courses, int(total), nil
}

func mongoFilter(q models.CourseQuery) bson.M {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = string(q.Status)
	}
	if q.Rarity != "" {
		filter["rarityLevel"] = string(q.Rarity)
	}
	if q.Level > 0 {
		filter["level"] = q.Level
	}
	if q.Tag != "" {
		filter["tags"] = q.Tag
	}
	if q.Synthetic != nil {
		filter["synthetic"] = *q.Synthetic
	}
	if q.Search != "" {
		pattern := regexp.QuoteMeta(q.Search)
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return filter
}

func mongoSort(q models.CourseQuery) bson.D {
	field, desc := q.SortKey()
	dir := 1
	if desc {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "id", Value: 1}}
}
