package handler

import (
	"context"

	"github.com/sanosuguru/go-reservation-service/internal/application"
	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
	"github.com/sanosuguru/go-reservation-service/internal/domain/reservation"
)

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error)
	GetAllReservations(ctx context.Context) ([]*reservation.Reservation, error)
	GetUserReservations(ctx context.Context, userID string) ([]*reservation.Reservation, error)
	GetReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error)
}

// EventServiceInterface はイベントプロキシサービスのインターフェース
type EventServiceInterface interface {
	GetAllEvents(ctx context.Context) ([]*event.Event, error)
	GetEventByID(ctx context.Context, id int64) (*event.Event, error)
}
