package reservation

import (
	"net/mail"
	"time"
)

// Status は予約の状態を表す
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// Reservation は予約エンティティを表す
// 上流サービスでの座席確保が成功した後にのみ作成される
type Reservation struct {
	ID          string
	EventID     int64
	UserID      string
	UserName    string
	UserEmail   string
	Seats       int
	Status      Status
	CreatedAt   time.Time
	CancelledAt *time.Time
}

// NewReservation は確定済みの新しい予約を作成する
func NewReservation(eventID int64, userID, userName, userEmail string, seats int) *Reservation {
	return &Reservation{
		EventID:   eventID,
		UserID:    userID,
		UserName:  userName,
		UserEmail: userEmail,
		Seats:     seats,
		Status:    StatusConfirmed,
		CreatedAt: time.Now(),
	}
}

// IsConfirmed は予約が確定済みかを返す
func (r *Reservation) IsConfirmed() bool {
	return r.Status == StatusConfirmed
}

// Cancel は予約をキャンセルする
// 許可される遷移は confirmed → cancelled のみ
func (r *Reservation) Cancel() error {
	if r.Status == StatusCancelled {
		return ErrReservationAlreadyCancelled
	}
	if r.Status != StatusConfirmed {
		return ErrReservationNotConfirmed
	}
	now := time.Now()
	r.Status = StatusCancelled
	r.CancelledAt = &now
	return nil
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.EventID <= 0 {
		return ErrEventIDRequired
	}
	if r.UserID == "" {
		return ErrUserIDRequired
	}
	if r.UserName == "" {
		return ErrUserNameRequired
	}
	if _, err := mail.ParseAddress(r.UserEmail); err != nil {
		return ErrUserEmailInvalid
	}
	if r.Seats < 1 {
		return ErrSeatsRequired
	}
	return nil
}
