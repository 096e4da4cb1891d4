package resilience

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-reservation-service/internal/pkg/logger"
)

// ErrCircuitOpen はブレーカーが開いていてリクエストが拒否されたことを表す
var ErrCircuitOpen = errors.New("サーキットブレーカーが開いています")

// State はサーキットブレーカーの状態
type State int

const (
	// StateClosed は通常状態（リクエストを通す）
	StateClosed State = iota
	// StateOpen は遮断状態（リクエストを即座に拒否）
	StateOpen
	// StateHalfOpen は試行状態（1件だけ通して結果で判断）
	StateHalfOpen
)

// String は状態の文字列表現を返す
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker は操作ごとのサーキットブレーカー
// 連続失敗が failureThreshold に達すると開き、resetTimeout 経過後に
// 1件だけ試行リクエストを通す。試行の成否で次の状態が決まる。
type Breaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool

	now           func() time.Time
	onStateChange func(name string, state State)
}

// NewBreaker は新しいBreakerを作成する
// name は保護対象の操作名（ログ・メトリクス用）
func NewBreaker(name string, failureThreshold int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// Name はブレーカーの操作名を返す
func (b *Breaker) Name() string {
	return b.name
}

// State は現在の状態を返す
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OnStateChange は状態遷移時に呼ばれるフックを登録する
func (b *Breaker) OnStateChange(fn func(name string, state State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Execute は操作をブレーカー保護付きで実行する
// 開いている間は操作を呼び出さずに ErrCircuitOpen を返す
func (b *Breaker) Execute(op func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := op()
	b.record(err)
	return err
}

// allow は呼び出しを通すかどうかを判定する
// Open かつ resetTimeout 経過後は試行リクエストを1件だけ通す
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen && b.state != StateHalfOpen {
		return nil
	}

	if b.trialInFlight {
		return ErrCircuitOpen
	}
	if b.now().Sub(b.lastFailure) <= b.resetTimeout {
		return ErrCircuitOpen
	}

	// タイムアウト経過後の最初の1件を試行として通す
	b.trialInFlight = true
	b.setState(StateHalfOpen)
	logger.Info("サーキットブレーカー半開、試行リクエストを許可", zap.String("operation", b.name))
	return nil
}

// record は操作の結果を記録し、状態を遷移させる
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false

	if err == nil {
		b.failureCount = 0
		if b.state != StateClosed {
			logger.Info("サーキットブレーカーが閉じました", zap.String("operation", b.name))
		}
		b.setState(StateClosed)
		return
	}

	b.failureCount++
	b.lastFailure = b.now()

	if b.failureCount >= b.failureThreshold {
		if b.state != StateOpen {
			logger.Warn("サーキットブレーカーが開きました",
				zap.String("operation", b.name),
				zap.Int("failure_count", b.failureCount),
			)
		}
		b.setState(StateOpen)
	} else if b.state == StateHalfOpen {
		b.setState(StateOpen)
	}
}

// setState は状態を更新しフックを呼ぶ（呼び出し側でロック保持必須）
func (b *Breaker) setState(s State) {
	if b.state == s {
		return
	}
	b.state = s
	if b.onStateChange != nil {
		b.onStateChange(b.name, s)
	}
}
