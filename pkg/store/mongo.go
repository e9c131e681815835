package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
	"github.com/matzehuels/causalcanvas/pkg/graph"
)

// DefaultCollection is the collection projects are stored in.
const DefaultCollection = "projects"

// MongoConfig configures [NewMongoStore].
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// MongoStore keeps each project as one document.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "causalcanvas"
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "connect %s", cfg.URI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "ping %s", cfg.URI)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		now:    time.Now,
	}, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Summary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.D{{Key: "nodes", Value: 0}, {Key: "edges", Value: 0}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "list projects")
	}
	out := []Summary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "list projects")
	}
	return out, nil
}

func (s *MongoStore) Create(ctx context.Context, title string) (graph.Project, error) {
	title, err := titleOr(title, graph.DefaultTitle)
	if err != nil {
		return graph.Project{}, err
	}
	rec := newRecord(title, s.now().UTC())
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return graph.Project{}, apperrors.Wrap(apperrors.ErrCodeStorage, err, "create project")
	}
	return rec.project(), nil
}

func (s *MongoStore) Load(ctx context.Context, id string) (graph.Document, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return graph.Document{}, err
	}
	return rec.document(), nil
}

func (s *MongoStore) Save(ctx context.Context, id string, doc graph.Document) (SaveResult, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return SaveResult{}, err
	}
	rep := rec.setContents(doc, s.now().UTC())
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "nodes", Value: rec.Nodes},
		{Key: "edges", Value: rec.Edges},
		{Key: "node_count", Value: rec.NodeCount},
		{Key: "edge_count", Value: rec.EdgeCount},
		{Key: "updated_at", Value: rec.UpdatedAt},
	}}}
	res, err := s.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return SaveResult{}, apperrors.Wrap(apperrors.ErrCodeStorage, err, "save project %s", id)
	}
	if res.MatchedCount == 0 {
		return SaveResult{}, notFound(id)
	}
	return rec.saveResult(rep), nil
}

func (s *MongoStore) Rename(ctx context.Context, id, title string) (graph.Project, error) {
	title = trimTitle(title)
	if title == "" {
		rec, err := s.get(ctx, id)
		return rec.project(), err
	}
	if err := apperrors.ValidateTitle(title); err != nil {
		return graph.Project{}, err
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: title},
		{Key: "updated_at", Value: s.now().UTC()},
	}}}
	var rec record
	err := s.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update,
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.D{{Key: "nodes", Value: 0}, {Key: "edges", Value: 0}}),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return graph.Project{}, notFound(id)
	}
	if err != nil {
		return graph.Project{}, apperrors.Wrap(apperrors.ErrCodeStorage, err, "rename project %s", id)
	}
	return rec.project(), nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "delete project %s", id)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

func (s *MongoStore) Import(ctx context.Context, doc graph.Document) (graph.Project, error) {
	title, err := titleOr(doc.Project.Title, graph.ImportedTitle)
	if err != nil {
		return graph.Project{}, err
	}
	rec := newRecord(title, s.now().UTC())
	rec.setContents(doc, rec.CreatedAt)
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return graph.Project{}, apperrors.Wrap(apperrors.ErrCodeStorage, err, "import project")
	}
	return rec.project(), nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) get(ctx context.Context, id string) (record, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return record{}, notFound(id)
	}
	if err != nil {
		return record{}, apperrors.Wrap(apperrors.ErrCodeStorage, err, "load project %s", id)
	}
	return rec, nil
}

var _ Store = (*MongoStore)(nil)
