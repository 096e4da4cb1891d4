package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/logger"
)

// EventService はイベント情報サービスへのプロキシ。
// 上流の負荷を抑えるため応答を短期キャッシュする。
type EventService struct {
	client event.Client
	cache  EventCache
	log    *zap.Logger
}

func NewEventService(client event.Client, cache EventCache) *EventService {
	return &EventService{
		client: client,
		cache:  cache,
		log:    logger.Named("event-service"),
	}
}

// GetAllEvents は全イベントを返す。キャッシュヒット時は上流を呼ばない。
func (s *EventService) GetAllEvents(ctx context.Context) ([]*event.Event, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetAll(ctx); err != nil {
			s.log.Warn("イベント一覧キャッシュ参照に失敗", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	events, err := s.client.GetAllEvents(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetAll(ctx, events); err != nil {
			s.log.Warn("イベント一覧キャッシュ保存に失敗", zap.Error(err))
		}
	}
	return events, nil
}

// GetEventByID はイベントをIDで返す。キャッシュヒット時は上流を呼ばない。
func (s *EventService) GetEventByID(ctx context.Context, id int64) (*event.Event, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, id); err != nil {
			s.log.Warn("イベントキャッシュ参照に失敗", zap.Int64("event_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	ev, err := s.client.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ev); err != nil {
			s.log.Warn("イベントキャッシュ保存に失敗", zap.Int64("event_id", id), zap.Error(err))
		}
	}
	return ev, nil
}
