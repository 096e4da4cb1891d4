package event

import "context"

// Event は上流イベントサービスが管理するイベントを表す
// このサービスはイベントを所有せず、REST経由の読み取り専用ビューとして扱う
type Event struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Date          string `json:"date"`
	Location      string `json:"location"`
	TotalCapacity int    `json:"totalCapacity"`
	BookedSeats   int    `json:"bookedSeats"`
}

// AvailableSeats は残り座席数を返す
func (e *Event) AvailableSeats() int {
	return e.TotalCapacity - e.BookedSeats
}

// HasAvailableSeats は指定数の座席が確保可能かを返す
func (e *Event) HasAvailableSeats(seats int) bool {
	return e.AvailableSeats() >= seats
}

// BookingResult は座席確保APIのレスポンスを表す
type BookingResult struct {
	Message string `json:"message"`
	Event   *Event `json:"event"`
}

// Client は上流イベントサービスへのクライアントインターフェース
// 実装はサーキットブレーカーとリトライで保護される
type Client interface {
	// GetAllEvents は全イベントを取得する
	GetAllEvents(ctx context.Context) ([]*Event, error)

	// GetEventByID は指定IDのイベントを取得する
	// 存在しない場合は ErrEventNotFound を返す
	GetEventByID(ctx context.Context, id int64) (*Event, error)

	// BookSeats は指定イベントの座席を確保する
	BookSeats(ctx context.Context, id int64, seats int) (*BookingResult, error)
}
