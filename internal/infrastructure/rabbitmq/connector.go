package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-reservation-service/internal/config"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/logger"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/metrics"
)

// RoutingKeyReservationCreated は予約作成イベントのルーティングキー
const RoutingKeyReservationCreated = "reservation.created"

// ErrConnectorClosed は停止済みのコネクターへの操作を表す
var ErrConnectorClosed = errors.New("ブローカーコネクターは停止済みです")

// amqpChannel はテストで差し替え可能なAMQPチャネルの抽象
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpConnection はテストで差し替え可能なAMQP接続の抽象
type amqpConnection interface {
	Channel() (amqpChannel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

// realConnection は amqp091 の接続を amqpConnection に適合させる
type realConnection struct {
	*amqp.Connection
}

func (c *realConnection) Channel() (amqpChannel, error) {
	return c.Connection.Channel()
}

func defaultDial(url string) (amqpConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &realConnection{Connection: conn}, nil
}

// Connector はブローカーへの単一のパブリッシュチャネルを管理する
// 接続確立・トポロジー宣言・切断検知・遅延付き再接続を担い、
// 再接続は常に1つだけ進行する（多重再接続ループは起きない）
type Connector struct {
	cfg  *config.BrokerConfig
	m    *metrics.Metrics
	dial func(url string) (amqpConnection, error)

	// connectMu は接続シーケンス全体を直列化する
	connectMu sync.Mutex

	mu           sync.Mutex
	conn         amqpConnection
	channel      amqpChannel
	reconnecting bool
	closed       bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewConnector は新しいConnectorを作成する
func NewConnector(cfg *config.BrokerConfig, m *metrics.Metrics) *Connector {
	return &Connector{
		cfg:    cfg,
		m:      m,
		dial:   defaultDial,
		stopCh: make(chan struct{}),
	}
}

// Start はバックグラウンドで初回接続を開始する
// 失敗してもプロセスは起動を続け、遅延後に自動で再試行される
func (c *Connector) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Connect(); err != nil {
			logger.Warn("ブローカーへの初回接続に失敗、バックグラウンドで再試行します", zap.Error(err))
		}
	}()
}

// Connect は接続→チャネル開設→トポロジー宣言の一連を実行する
// 失敗時は ReconnectDelay 経過後の再試行をスケジュールしてからエラーを返す
func (c *Connector) Connect() error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectorClosed
	}
	if c.channel != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, err := c.dial(c.cfg.URL)
	if err != nil {
		return c.connectFailed(fmt.Errorf("ブローカー接続に失敗: %w", err))
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return c.connectFailed(fmt.Errorf("チャネル開設に失敗: %w", err))
	}

	if err := c.declareTopology(ch); err != nil {
		_ = conn.Close()
		return c.connectFailed(err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrConnectorClosed
	}
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	c.wg.Add(1)
	go c.watchClose(closeCh)

	c.m.BrokerReconnectsTotal.WithLabelValues("success").Inc()
	logger.Info("ブローカーに接続しました",
		zap.String("exchange", c.cfg.Exchange),
		zap.String("queue", c.cfg.Queue),
	)
	return nil
}

// connectFailed は失敗を記録し、再試行をスケジュールする
func (c *Connector) connectFailed(err error) error {
	c.m.BrokerReconnectsTotal.WithLabelValues("failed").Inc()
	logger.Error("ブローカー接続シーケンスに失敗", zap.Error(err))
	c.scheduleReconnect()
	return err
}

// declareTopology はエクスチェンジ・キュー・バインディングを宣言する
// すべて durable（ブローカー再起動後も残る）
func (c *Connector) declareTopology(ch amqpChannel) error {
	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("エクスチェンジ宣言に失敗: %w", err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("キュー宣言に失敗: %w", err)
	}
	if err := ch.QueueBind(c.cfg.Queue, c.cfg.BindingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("キューバインドに失敗: %w", err)
	}
	return nil
}

// watchClose は接続の切断通知を監視する
func (c *Connector) watchClose(closeCh chan *amqp.Error) {
	defer c.wg.Done()

	select {
	case amqpErr, ok := <-closeCh:
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.conn = nil
		c.channel = nil
		c.mu.Unlock()

		if ok && amqpErr != nil {
			logger.Warn("ブローカー接続が切断されました、再接続をスケジュール", zap.String("reason", amqpErr.Error()))
		} else {
			logger.Warn("ブローカー接続が閉じられました、再接続をスケジュール")
		}
		c.scheduleReconnect()

	case <-c.stopCh:
	}
}

// scheduleReconnect は ReconnectDelay 経過後の再接続を1件だけスケジュールする
// 既にスケジュール済みの場合は何もしない
func (c *Connector) scheduleReconnect() {
	c.mu.Lock()
	if c.reconnecting || c.closed {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		timer := time.NewTimer(c.cfg.ReconnectDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-c.stopCh:
			c.mu.Lock()
			c.reconnecting = false
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()

		// 失敗時は Connect 自身が次の再試行をスケジュールする
		_ = c.Connect()
	}()
}

// Publish はルーティングキー付きでメッセージをパブリッシュする
// チャネル未保持の場合は同期的に接続を試みる（コールドスタート直後の
// パブリッシュを黙って落とさないため）。失敗は呼び出し側に報告するのみで
// 自動リトライはしない。
func (c *Connector) Publish(ctx context.Context, routingKey string, payload any) error {
	c.mu.Lock()
	ch := c.channel
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrConnectorClosed
	}

	if ch == nil {
		if err := c.Connect(); err != nil {
			c.m.PublishesTotal.WithLabelValues("failed").Inc()
			return fmt.Errorf("ブローカー未接続: %w", err)
		}
		c.mu.Lock()
		ch = c.channel
		c.mu.Unlock()
		if ch == nil {
			c.m.PublishesTotal.WithLabelValues("failed").Inc()
			return errors.New("ブローカーチャネルを取得できませんでした")
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.m.PublishesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("ペイロードのシリアライズに失敗: %w", err)
	}

	err = ch.PublishWithContext(ctx, c.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		c.m.PublishesTotal.WithLabelValues("failed").Inc()
		logger.Error("メッセージのパブリッシュに失敗",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return fmt.Errorf("パブリッシュに失敗: %w", err)
	}

	c.m.PublishesTotal.WithLabelValues("published").Inc()
	logger.Debug("メッセージをパブリッシュしました", zap.String("routing_key", routingKey))
	return nil
}

// Connected はチャネルを保持しているかを返す
func (c *Connector) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel != nil
}

// Close はコネクターを停止し、進行中の再接続ループを終了させる
func (c *Connector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.channel = nil
	c.mu.Unlock()

	close(c.stopCh)
	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()
}
