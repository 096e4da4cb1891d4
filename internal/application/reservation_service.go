package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
	"github.com/sanosuguru/go-reservation-service/internal/domain/reservation"
	"github.com/sanosuguru/go-reservation-service/internal/infrastructure/rabbitmq"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/logger"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/metrics"
)

// Publisher はメッセージブローカーへの発行を抽象化する
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// EventCache はイベント情報の短期キャッシュを抽象化する
type EventCache interface {
	GetAll(ctx context.Context) ([]*event.Event, error)
	SetAll(ctx context.Context, events []*event.Event) error
	Get(ctx context.Context, id int64) (*event.Event, error)
	Set(ctx context.Context, ev *event.Event) error
	Invalidate(ctx context.Context, id int64) error
}

// CreateReservationInput は予約作成リクエスト
type CreateReservationInput struct {
	EventID   int64  `json:"eventId" validate:"required,gt=0"`
	UserID    string `json:"userId" validate:"required"`
	UserName  string `json:"userName" validate:"required"`
	UserEmail string `json:"userEmail" validate:"required,email"`
	Seats     int    `json:"seats" validate:"required,min=1"`
}

// ReservationCreatedMessage は予約確定時にブローカーへ発行するペイロード
type ReservationCreatedMessage struct {
	EventID       int64     `json:"eventId"`
	ReservationID string    `json:"reservationId"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	UserEmail     string    `json:"userEmail"`
	Seats         int       `json:"seats"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ReservationService は予約作成のオーケストレーションを担う。
// イベント情報サービスへの問い合わせと座席確保が成功した場合のみ予約を永続化し、
// その後ブローカーへ通知する。通知の失敗は予約の成否に影響しない。
type ReservationService struct {
	repo      reservation.Repository
	events    event.Client
	publisher Publisher
	cache     EventCache
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewReservationService(
	repo reservation.Repository,
	events event.Client,
	publisher Publisher,
	cache EventCache,
	m *metrics.Metrics,
) *ReservationService {
	return &ReservationService{
		repo:      repo,
		events:    events,
		publisher: publisher,
		cache:     cache,
		metrics:   m,
		log:       logger.Named("reservation-service"),
	}
}

// CreateReservation は予約を作成する。
// 1. イベントの存在確認
// 2. 座席確保
// 3. 予約の永続化
// 4. ブローカーへの通知(ベストエフォート)
func (s *ReservationService) CreateReservation(ctx context.Context, in CreateReservationInput) (*reservation.Reservation, error) {
	res := reservation.NewReservation(in.EventID, in.UserID, in.UserName, in.UserEmail, in.Seats)
	if err := res.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.events.GetEventByID(ctx, in.EventID); err != nil {
		return nil, err
	}

	if _, err := s.events.BookSeats(ctx, in.EventID, in.Seats); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	s.metrics.ReservationsTotal.WithLabelValues(string(res.Status)).Inc()

	// 座席数が変わったのでキャッシュを破棄する
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, in.EventID); err != nil {
			s.log.Warn("イベントキャッシュの破棄に失敗",
				zap.Int64("event_id", in.EventID), zap.Error(err))
		}
	}

	// 通知失敗は予約を巻き戻さない
	msg := ReservationCreatedMessage{
		EventID:       res.EventID,
		ReservationID: res.ID,
		UserID:        res.UserID,
		UserName:      res.UserName,
		UserEmail:     res.UserEmail,
		Seats:         res.Seats,
		Status:        string(res.Status),
		CreatedAt:     res.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeyReservationCreated, msg); err != nil {
		s.log.Error("予約通知の発行に失敗",
			zap.String("reservation_id", res.ID), zap.Error(err))
	}

	return res, nil
}

// GetAllReservations は全予約を新しい順で返す
func (s *ReservationService) GetAllReservations(ctx context.Context) ([]*reservation.Reservation, error) {
	return s.repo.GetAll(ctx)
}

// GetUserReservations は指定ユーザーの予約を新しい順で返す
func (s *ReservationService) GetUserReservations(ctx context.Context, userID string) ([]*reservation.Reservation, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetReservation は予約をIDで取得する
func (s *ReservationService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

// CancelReservation は予約をキャンセルする
func (s *ReservationService) CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := res.Cancel(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	s.metrics.ReservationsTotal.WithLabelValues(string(res.Status)).Inc()

	return res, nil
}
