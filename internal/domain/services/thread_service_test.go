package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/drujensen/meowwchat/internal/domain/errs"
	"github.com/drujensen/meowwchat/internal/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestThreadService() (*threadService, *mockThreadAPI, *mockCredentialSource) {
	api := new(mockThreadAPI)
	creds := new(mockCredentialSource)
	creds.On("AccessToken", mock.Anything).Return("token", nil)
	return NewThreadService(api, creds, nil, false, zap.NewNop()), api, creds
}

func TestThreadService_ListThreads(t *testing.T) {
	ctx := context.Background()

	t.Run("returns threads", func(t *testing.T) {
		service, api, _ := newTestThreadService()
		expected := []*entities.Thread{{ID: "a"}, {ID: "b"}}
		api.On("ListThreads", ctx, "token").Return(expected, nil).Once()

		threads, err := service.ListThreads(ctx)

		assert.NoError(t, err)
		assert.Equal(t, expected, threads)
	})

	t.Run("no threads yet", func(t *testing.T) {
		service, api, _ := newTestThreadService()
		api.On("ListThreads", ctx, "token").Return(nil, errs.RequestFailedErrorf(404, "User has no threads")).Once()

		threads, err := service.ListThreads(ctx)

		assert.NoError(t, err)
		assert.NotNil(t, threads)
		assert.Empty(t, threads)
	})

	t.Run("rejected token", func(t *testing.T) {
		service, api, creds := newTestThreadService()
		creds.On("Invalidate", ctx).Return(nil).Once()
		api.On("ListThreads", ctx, "token").Return(nil, errs.RequestFailedErrorf(401, "expired")).Once()

		_, err := service.ListThreads(ctx)

		assert.True(t, errs.HasStatus(err, 401))
		creds.AssertExpectations(t)
	})
}

func TestThreadService_GroupedThreads(t *testing.T) {
	ctx := context.Background()
	service, api, _ := newTestThreadService()
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	api.On("ListThreads", ctx, "token").Return([]*entities.Thread{
		{ID: "old", CreateTime: entities.NewTimestamp(now.Add(-40 * 24 * time.Hour))},
		{ID: "new", CreateTime: entities.NewTimestamp(now.Add(-time.Hour))},
	}, nil).Once()

	groups, err := service.GroupedThreads(ctx, now)

	require.NoError(t, err)
	require.Len(t, groups, 4)
	assert.Equal(t, "new", groups[0].Threads[0].ID)
	assert.Equal(t, "old", groups[3].Threads[0].ID)
}

func TestThreadService_GetThread(t *testing.T) {
	ctx := context.Background()

	t.Run("valid thread", func(t *testing.T) {
		service, api, _ := newTestThreadService()
		thread := &entities.Thread{ID: "a", Name: "Cats"}
		api.On("GetThread", ctx, "token", "a").Return(thread, nil).Once()

		result, err := service.GetThread(ctx, "a")

		assert.NoError(t, err)
		assert.Equal(t, thread, result)
	})

	t.Run("empty id", func(t *testing.T) {
		service, _, _ := newTestThreadService()

		_, err := service.GetThread(ctx, "")

		assert.IsType(t, &errs.ValidationError{}, err)
	})

	t.Run("unknown thread", func(t *testing.T) {
		service, api, _ := newTestThreadService()
		api.On("GetThread", ctx, "token", "missing").Return(nil, errs.RequestFailedErrorf(404, "Thread not found")).Once()

		_, err := service.GetThread(ctx, "missing")

		assert.IsType(t, &errs.NotFoundError{}, err)
	})
}

func TestThreadService_CreateThread(t *testing.T) {
	ctx := context.Background()

	t.Run("trims prompt and announces the thread", func(t *testing.T) {
		service, api, _ := newTestThreadService()
		created := &entities.CreateThreadResponse{
			ThreadID:    "t-9",
			ChatHistory: []entities.Message{userMsg("1", "hello")},
		}
		api.On("CreateThread", ctx, "token", &entities.NewThreadRequest{Prompt: "hello", Attachments: []any{}}).
			Return(created, nil).Once()

		var wg sync.WaitGroup
		wg.Add(1)
		var once sync.Once
		var announced string
		unsubscribe := events.SubscribeToThreadsChangedEvents(func(data events.ThreadsChangedEventData) {
			once.Do(func() {
				announced = data.ThreadID
				wg.Done()
			})
		})
		defer unsubscribe()

		result, err := service.CreateThread(ctx, "  hello \n")

		assert.NoError(t, err)
		assert.Equal(t, created, result)
		wg.Wait()
		assert.Equal(t, "t-9", announced)
	})

	t.Run("blank prompt", func(t *testing.T) {
		service, api, _ := newTestThreadService()

		_, err := service.CreateThread(ctx, "   ")

		assert.IsType(t, &errs.ValidationError{}, err)
		api.AssertNotCalled(t, "CreateThread", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestThreadService_SessionIsSharedPerThread(t *testing.T) {
	service, _, _ := newTestThreadService()

	first, err := service.Session("a")
	require.NoError(t, err)
	second, err := service.Session("a")
	require.NoError(t, err)
	other, err := service.Session("b")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
	assert.Equal(t, "b", other.ThreadID())

	_, err = service.Session("")
	assert.IsType(t, &errs.ValidationError{}, err)
}
