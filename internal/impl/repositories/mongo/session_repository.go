package repositories_mongo

import (
	"context"
	"errors"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultProfile keys the single stored login.
const DefaultProfile = "default"

type sessionDocument struct {
	Profile          string `bson:"_id"`
	entities.Session `bson:",inline"`
}

type MongoSessionRepository struct {
	collection *mongo.Collection
	profile    string
}

func NewMongoSessionRepository(collection *mongo.Collection, profile string) *MongoSessionRepository {
	if profile == "" {
		profile = DefaultProfile
	}
	return &MongoSessionRepository{
		collection: collection,
		profile:    profile,
	}
}

func (r *MongoSessionRepository) GetSession(ctx context.Context) (*entities.Session, error) {
	var doc sessionDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": r.profile}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.NotFoundErrorf("no session stored for profile %s", r.profile)
	}
	if err != nil {
		return nil, errs.InternalErrorf("failed to load session: %v", err)
	}

	session := doc.Session
	return &session, nil
}

func (r *MongoSessionRepository) SaveSession(ctx context.Context, session *entities.Session) error {
	if session == nil || session.AccessToken == "" {
		return errs.ValidationErrorf("session has no access token")
	}

	doc := sessionDocument{Profile: r.profile, Session: *session}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": r.profile}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errs.InternalErrorf("failed to save session: %v", err)
	}

	return nil
}

func (r *MongoSessionRepository) DeleteSession(ctx context.Context) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": r.profile})
	if err != nil {
		return errs.InternalErrorf("failed to delete session: %v", err)
	}

	return nil
}

var _ interfaces.SessionRepository = (*MongoSessionRepository)(nil)
