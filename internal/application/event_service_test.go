package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
)

func newTestEventService(t *testing.T) (*EventService, *mockEventClient, *mockEventCache) {
	t.Helper()
	client := &mockEventClient{}
	cache := &mockEventCache{}
	return NewEventService(client, cache), client, cache
}

func TestGetAllEvents_CacheHitSkipsUpstream(t *testing.T) {
	svc, client, cache := newTestEventService(t)
	ctx := context.Background()

	cached := []*event.Event{{ID: 1, Name: "夏フェス"}}
	cache.On("GetAll", ctx).Return(cached, nil)

	got, err := svc.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, cached, got)

	client.AssertNotCalled(t, "GetAllEvents", mock.Anything)
}

func TestGetAllEvents_CacheMissFetchesAndStores(t *testing.T) {
	svc, client, cache := newTestEventService(t)
	ctx := context.Background()

	fetched := []*event.Event{{ID: 1}, {ID: 2}}
	cache.On("GetAll", ctx).Return(nil, nil)
	client.On("GetAllEvents", ctx).Return(fetched, nil)
	cache.On("SetAll", ctx, fetched).Return(nil)

	got, err := svc.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	cache.AssertCalled(t, "SetAll", ctx, fetched)
}

func TestGetAllEvents_CacheErrorFallsThroughToUpstream(t *testing.T) {
	svc, client, cache := newTestEventService(t)
	ctx := context.Background()

	cache.On("GetAll", ctx).Return(nil, errors.New("redis down"))
	client.On("GetAllEvents", ctx).Return([]*event.Event{{ID: 1}}, nil)
	cache.On("SetAll", ctx, mock.Anything).Return(errors.New("redis down"))

	got, err := svc.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetAllEvents_UpstreamErrorPropagates(t *testing.T) {
	svc, client, cache := newTestEventService(t)
	ctx := context.Background()

	cache.On("GetAll", ctx).Return(nil, nil)
	client.On("GetAllEvents", ctx).Return(nil, event.ErrServiceUnavailable)

	_, err := svc.GetAllEvents(ctx)
	assert.ErrorIs(t, err, event.ErrServiceUnavailable)

	cache.AssertNotCalled(t, "SetAll", mock.Anything, mock.Anything)
}

func TestGetEventByID_CacheHit(t *testing.T) {
	svc, client, cache := newTestEventService(t)
	ctx := context.Background()

	cache.On("Get", ctx, int64(1)).Return(&event.Event{ID: 1, Name: "演劇公演"}, nil)

	got, err := svc.GetEventByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "演劇公演", got.Name)

	client.AssertNotCalled(t, "GetEventByID", mock.Anything, mock.Anything)
}

func TestGetEventByID_CacheMissFetchesAndStores(t *testing.T) {
	svc, client, cache := newTestEventService(t)
	ctx := context.Background()

	ev := &event.Event{ID: 1}
	cache.On("Get", ctx, int64(1)).Return(nil, nil)
	client.On("GetEventByID", ctx, int64(1)).Return(ev, nil)
	cache.On("Set", ctx, ev).Return(nil)

	got, err := svc.GetEventByID(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, ev, got)
}

func TestGetEventByID_NotFoundPropagates(t *testing.T) {
	svc, client, cache := newTestEventService(t)
	ctx := context.Background()

	cache.On("Get", ctx, int64(99)).Return(nil, nil)
	client.On("GetEventByID", ctx, int64(99)).Return(nil, event.ErrEventNotFound)

	_, err := svc.GetEventByID(ctx, 99)
	assert.ErrorIs(t, err, event.ErrEventNotFound)
}

func TestEventService_NilCacheGoesStraightToUpstream(t *testing.T) {
	client := &mockEventClient{}
	svc := NewEventService(client, nil)
	ctx := context.Background()

	client.On("GetAllEvents", ctx).Return([]*event.Event{{ID: 1}}, nil)

	got, err := svc.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
