package eventsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-reservation-service/internal/config"
	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/logger"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/metrics"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/resilience"
)

// 操作名（ブレーカー・メトリクスのラベル）
const (
	opGetEvents = "get_events"
	opGetEvent  = "get_event"
	opBookSeats = "book_seats"
)

// Client は上流イベントサービスへのHTTPクライアント
// 各操作は独立したサーキットブレーカーで保護され、ブレーカーの内側で
// リトライが実行される（リトライ一式がブレーカーへの1回の成否として扱われる）
type Client struct {
	baseURL    string
	httpClient *http.Client
	retrier    *resilience.Retrier
	metrics    *metrics.Metrics

	getEventsBreaker *resilience.Breaker
	getEventBreaker  *resilience.Breaker
	bookSeatsBreaker *resilience.Breaker
}

// NewClient は新しいClientを作成する
func NewClient(cfg *config.Config, m *metrics.Metrics) *Client {
	newBreaker := func(op string) *resilience.Breaker {
		b := resilience.NewBreaker(op, cfg.Breaker.FailureThreshold, cfg.Breaker.ResetTimeout)
		b.OnStateChange(func(name string, s resilience.State) {
			m.BreakerState.WithLabelValues(name).Set(float64(s))
		})
		return b
	}

	return &Client{
		baseURL: cfg.Upstream.BaseURL,
		httpClient: &http.Client{
			// 試行ごとのタイムアウト（リトライ間隔とは独立）
			Timeout: cfg.Upstream.Timeout,
		},
		retrier:          resilience.NewRetrier(cfg.Retry.MaxAttempts, cfg.Retry.InitialDelay, cfg.Retry.BackoffFactor),
		metrics:          m,
		getEventsBreaker: newBreaker(opGetEvents),
		getEventBreaker:  newBreaker(opGetEvent),
		bookSeatsBreaker: newBreaker(opBookSeats),
	}
}

// GetAllEvents は全イベントを取得する
func (c *Client) GetAllEvents(ctx context.Context) ([]*event.Event, error) {
	var events []*event.Event
	err := c.call(opGetEvents, c.getEventsBreaker, func() error {
		return c.getJSON(ctx, c.baseURL, &events)
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEventByID は指定IDのイベントを取得する
func (c *Client) GetEventByID(ctx context.Context, id int64) (*event.Event, error) {
	var ev event.Event
	err := c.call(opGetEvent, c.getEventBreaker, func() error {
		return c.getJSON(ctx, fmt.Sprintf("%s/%d", c.baseURL, id), &ev)
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// BookSeats は指定イベントの座席を確保する
func (c *Client) BookSeats(ctx context.Context, id int64, seats int) (*event.BookingResult, error) {
	var result event.BookingResult
	err := c.call(opBookSeats, c.bookSeatsBreaker, func() error {
		return c.postJSON(ctx, fmt.Sprintf("%s/%d/book", c.baseURL, id), map[string]int{"seats": seats}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// call はブレーカー＋リトライで保護された呼び出しを実行し、
// 失敗をドメインエラーに変換する
func (c *Client) call(op string, breaker *resilience.Breaker, fn func() error) error {
	err := breaker.Execute(func() error {
		return c.retrier.Do(fn)
	})

	switch {
	case err == nil:
		c.metrics.UpstreamCallsTotal.WithLabelValues(op, "success").Inc()
		return nil

	case errors.Is(err, resilience.ErrCircuitOpen):
		c.metrics.UpstreamCallsTotal.WithLabelValues(op, "circuit_open").Inc()
		logger.Warn("ブレーカー開放中のため上流呼び出しを拒否", zap.String("operation", op))
		return event.ErrServiceUnavailable

	case errors.Is(err, event.ErrEventNotFound), errors.Is(err, event.ErrBookingRejected):
		c.metrics.UpstreamCallsTotal.WithLabelValues(op, "rejected").Inc()
		return err

	default:
		c.metrics.UpstreamCallsTotal.WithLabelValues(op, "failure").Inc()
		logger.Error("上流呼び出しがリトライを使い切って失敗",
			zap.String("operation", op),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", event.ErrUpstreamFailure, err)
	}
}

// getJSON はGETリクエストを実行しレスポンスをデコードする
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return resilience.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postJSON はJSONボディ付きのPOSTリクエストを実行しレスポンスをデコードする
func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return resilience.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// checkStatus は非2xxレスポンスをエラーに変換する
// 404 と 4xx は再試行しても結果が変わらないため Permanent としてマークする
// （ブレーカーに対しては失敗としてカウントされる）
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode < 300:
		return nil

	case resp.StatusCode == http.StatusNotFound:
		return resilience.Permanent(event.ErrEventNotFound)

	case resp.StatusCode < 500:
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return resilience.Permanent(fmt.Errorf("%w: %s", event.ErrBookingRejected, apiErr.Error))
		}
		return resilience.Permanent(fmt.Errorf("%w: ステータス %d", event.ErrBookingRejected, resp.StatusCode))

	default:
		return fmt.Errorf("上流サービスがステータス %d を返しました", resp.StatusCode)
	}
}

var _ event.Client = (*Client)(nil)
