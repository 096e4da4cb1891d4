package application

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
	"github.com/sanosuguru/go-reservation-service/internal/domain/reservation"
)

type mockRepository struct{ mock.Mock }

func (m *mockRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *mockRepository) GetByUserID(ctx context.Context, userID string) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *mockRepository) GetAll(ctx context.Context) ([]*reservation.Reservation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *mockRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

type mockEventClient struct{ mock.Mock }

func (m *mockEventClient) GetAllEvents(ctx context.Context) ([]*event.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *mockEventClient) GetEventByID(ctx context.Context, id int64) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *mockEventClient) BookSeats(ctx context.Context, id int64, seats int) (*event.BookingResult, error) {
	args := m.Called(ctx, id, seats)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.BookingResult), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

type mockEventCache struct{ mock.Mock }

func (m *mockEventCache) GetAll(ctx context.Context) ([]*event.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *mockEventCache) SetAll(ctx context.Context, events []*event.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *mockEventCache) Get(ctx context.Context, id int64) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *mockEventCache) Set(ctx context.Context, ev *event.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *mockEventCache) Invalidate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
