package repositories_mongo

import (
	"context"
	"testing"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoSessionRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get stored session", func(mt *mtest.T) {
		repo := NewMongoSessionRepository(mt.Coll, "")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "meowwchat.sessions", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: DefaultProfile},
			{Key: "token_type", Value: "Bearer"},
			{Key: "access_token", Value: "abc"},
			{Key: "expires_at", Value: int64(1700003600)},
		}))

		session, err := repo.GetSession(ctx)

		require.NoError(mt, err)
		assert.Equal(mt, "abc", session.AccessToken)
		assert.Equal(mt, int64(1700003600), session.ExpiresAt)
	})

	mt.Run("nothing stored", func(mt *mtest.T) {
		repo := NewMongoSessionRepository(mt.Coll, "work")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "meowwchat.sessions", mtest.FirstBatch))

		_, err := repo.GetSession(ctx)

		assert.IsType(mt, &errs.NotFoundError{}, err)
	})

	mt.Run("save upserts", func(mt *mtest.T) {
		repo := NewMongoSessionRepository(mt.Coll, "")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := repo.SaveSession(ctx, &entities.Session{AccessToken: "abc"})

		assert.NoError(mt, err)
	})

	mt.Run("save without token", func(mt *mtest.T) {
		repo := NewMongoSessionRepository(mt.Coll, "")

		err := repo.SaveSession(ctx, &entities.Session{})

		assert.IsType(mt, &errs.ValidationError{}, err)
	})

	mt.Run("delete failure", func(mt *mtest.T) {
		repo := NewMongoSessionRepository(mt.Coll, "")
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11600, Message: "interrupted"}))

		err := repo.DeleteSession(ctx)

		assert.IsType(mt, &errs.InternalError{}, err)
	})
}
