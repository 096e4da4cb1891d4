package resilience

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-reservation-service/internal/pkg/logger"
)

// Retrier は指数バックオフ付きのリトライを実行する
// maxAttempts は初回実行後の再試行回数（合計実行回数は maxAttempts + 1）
type Retrier struct {
	maxAttempts   int
	initialDelay  time.Duration
	backoffFactor float64

	sleep func(time.Duration)
}

// NewRetrier は新しいRetrierを作成する
func NewRetrier(maxAttempts int, initialDelay time.Duration, backoffFactor float64) *Retrier {
	return &Retrier{
		maxAttempts:   maxAttempts,
		initialDelay:  initialDelay,
		backoffFactor: backoffFactor,
		sleep:         time.Sleep,
	}
}

// permanentError は再試行しても回復しないエラーを表す
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent はエラーを再試行対象外としてマークする
// Retrier はこのマークを検出すると即座に元のエラーを返す
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do は操作を実行し、失敗時は指数バックオフで再試行する
// 最後の失敗のエラーをそのまま返す（ラップしない）
func (r *Retrier) Do(op func() error) error {
	delay := r.initialDelay

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		if attempt >= r.maxAttempts {
			return err
		}

		logger.Debug("リトライ待機中",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		r.sleep(delay)
		delay = time.Duration(float64(delay) * r.backoffFactor)
	}
}
