package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound         = errors.New("予約が見つかりません")
	ErrReservationAlreadyCancelled = errors.New("予約は既にキャンセルされています")
	ErrReservationNotConfirmed     = errors.New("確定済みの予約のみキャンセルできます")
	ErrEventIDRequired             = errors.New("イベントIDは必須です")
	ErrUserIDRequired              = errors.New("ユーザーIDは必須です")
	ErrUserNameRequired            = errors.New("ユーザー名は必須です")
	ErrUserEmailInvalid            = errors.New("メールアドレスが不正です")
	ErrSeatsRequired               = errors.New("座席数は1以上が必要です")
)
