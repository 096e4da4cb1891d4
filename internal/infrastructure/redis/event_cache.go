package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
)

const (
	allEventsKey  = "events:all"
	eventKeyFmt   = "events:%d"
	eventCacheTTL = 10 * time.Second
)

// EventCache はイベント情報サービスの応答を短期キャッシュする。
// 座席数は上流で刻々と変わるためTTLは意図的に短い。
type EventCache struct {
	client *redis.Client
}

func NewEventCache(client *redis.Client) *EventCache {
	return &EventCache{client: client}
}

// GetAll はキャッシュされたイベント一覧を返す。ミス時は (nil, nil)。
func (c *EventCache) GetAll(ctx context.Context) ([]*event.Event, error) {
	data, err := c.client.Get(ctx, allEventsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("イベント一覧キャッシュ取得エラー: %w", err)
	}

	var events []*event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("イベント一覧キャッシュ復元エラー: %w", err)
	}
	return events, nil
}

// SetAll はイベント一覧をキャッシュする
func (c *EventCache) SetAll(ctx context.Context, events []*event.Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("イベント一覧キャッシュ保存エラー: %w", err)
	}
	return c.client.Set(ctx, allEventsKey, data, eventCacheTTL).Err()
}

// Get はキャッシュされたイベントを返す。ミス時は (nil, nil)。
func (c *EventCache) Get(ctx context.Context, id int64) (*event.Event, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(eventKeyFmt, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("イベントキャッシュ取得エラー: %w", err)
	}

	var ev event.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("イベントキャッシュ復元エラー: %w", err)
	}
	return &ev, nil
}

// Set はイベントをキャッシュする
func (c *EventCache) Set(ctx context.Context, ev *event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("イベントキャッシュ保存エラー: %w", err)
	}
	return c.client.Set(ctx, fmt.Sprintf(eventKeyFmt, ev.ID), data, eventCacheTTL).Err()
}

// Invalidate は指定イベントと一覧のキャッシュを破棄する。
// 予約確定後に古い座席数を返さないために呼ぶ。
func (c *EventCache) Invalidate(ctx context.Context, id int64) error {
	return c.client.Del(ctx, fmt.Sprintf(eventKeyFmt, id), allEventsKey).Err()
}
