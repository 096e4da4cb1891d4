package reservation

import "context"

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を永続化し、採番されたIDをエンティティに設定する
	Create(ctx context.Context, reservation *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// GetByUserID はユーザーIDから予約一覧を取得する（作成日時の降順）
	GetByUserID(ctx context.Context, userID string) ([]*Reservation, error)

	// GetAll は全予約を取得する（作成日時の降順）
	GetAll(ctx context.Context) ([]*Reservation, error)

	// Update は予約の状態を更新する
	Update(ctx context.Context, reservation *Reservation) error
}
