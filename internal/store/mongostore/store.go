package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/logger"
)

const (
	defaultDatabase   = "hh_interviewer"
	defaultCollection = "interview_sessions"
	connectTimeout    = 10 * time.Second
)

type Options struct {
	URI        string
	Database   string
	Collection string
	Logger     *zap.Logger
}

// Store keeps each session, turns included, as one MongoDB document.
type Store struct {
	client *mongo.Client
	col    *mongo.Collection
	logger *zap.Logger
}

var _ interview.Store = (*Store)(nil)

// Open connects, pings and ensures indexes.
func Open(ctx context.Context, opts Options) (*Store, error) {
	uri := strings.TrimSpace(opts.URI)
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := strings.TrimSpace(opts.Database)
	if database == "" {
		database = defaultDatabase
	}
	collection := strings.TrimSpace(opts.Collection)
	if collection == "" {
		collection = defaultCollection
	}

	store := New(client.Database(database).Collection(collection), opts.Logger)
	store.client = client
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

// New wraps an existing collection.
func New(col *mongo.Collection, log *zap.Logger) *Store {
	return &Store{
		col:    col,
		logger: logger.WithFields(log, zap.String("store", "mongo")),
	}
}

// EnsureIndexes creates the partial unique index that allows one active
// session per (job, candidate).
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "job_id", Value: 1}, {Key: "candidate_id", Value: 1}},
		Options: options.Index().
			SetName("active_pair").
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "status", Value: string(interview.StatusActive)}}),
	})
	if err != nil {
		return fmt.Errorf("create active pair index: %w", err)
	}
	return nil
}

// Close disconnects the client created by Open.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) Create(ctx context.Context, session *interview.Session) error {
	_, err := s.col.InsertOne(ctx, toDocument(session))
	if mongo.IsDuplicateKeyError(err) {
		return interview.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) FindActive(ctx context.Context, jobID, candidateID string) (*interview.Session, error) {
	return s.findOne(ctx, bson.D{
		{Key: "job_id", Value: jobID},
		{Key: "candidate_id", Value: candidateID},
		{Key: "status", Value: string(interview.StatusActive)},
	})
}

func (s *Store) Get(ctx context.Context, id string) (*interview.Session, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) findOne(ctx context.Context, filter bson.D) (*interview.Session, error) {
	var doc document
	err := s.col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, interview.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return doc.toSession(), nil
}

// Save replaces the document only when its stored version matches.
func (s *Store) Save(ctx context.Context, session *interview.Session, expectedVersion int64) error {
	res, err := s.col.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: session.ID}, {Key: "version", Value: expectedVersion}},
		toDocument(session),
	)
	if err != nil {
		s.logger.Error("save session failed", zap.String(logger.FieldSessionID, session.ID), zap.Error(err))
		return fmt.Errorf("replace session: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	count, err := s.col.CountDocuments(ctx, bson.D{{Key: "_id", Value: session.ID}})
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if count == 0 {
		return interview.ErrSessionNotFound
	}
	return interview.ErrConflict
}
