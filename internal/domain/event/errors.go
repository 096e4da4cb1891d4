package event

import "errors"

// 上流イベントサービス呼び出しのエラー定義
var (
	// ErrEventNotFound は指定IDのイベントが存在しないことを表す
	ErrEventNotFound = errors.New("イベントが見つかりません")

	// ErrServiceUnavailable はサーキットブレーカーにより呼び出しが拒否されたことを表す
	// ネットワークアクセスは発生していない
	ErrServiceUnavailable = errors.New("イベントサービスは現在利用できません")

	// ErrUpstreamFailure はリトライを使い切っても呼び出しが成功しなかったことを表す
	ErrUpstreamFailure = errors.New("イベントサービスへのリクエストに失敗しました")

	// ErrBookingRejected は上流サービスが座席確保を拒否したことを表す（座席不足など）
	ErrBookingRejected = errors.New("座席を確保できませんでした")
)
