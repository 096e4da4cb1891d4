package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-reservation-service/internal/application"
	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
	"github.com/sanosuguru/go-reservation-service/internal/domain/reservation"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CreateReservationRequest struct {
	EventID   int64  `json:"eventId" validate:"required,gt=0" example:"1"`
	UserID    string `json:"userId" validate:"required" example:"user-123"`
	UserName  string `json:"userName" validate:"required" example:"山田太郎"`
	UserEmail string `json:"userEmail" validate:"required,email" example:"taro@example.com"`
	Seats     int    `json:"seats" validate:"required,min=1" example:"2"`
}

type ReservationResponse struct {
	ID          string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	EventID     int64      `json:"eventId" example:"1"`
	UserID      string     `json:"userId" example:"user-123"`
	UserName    string     `json:"userName" example:"山田太郎"`
	UserEmail   string     `json:"userEmail" example:"taro@example.com"`
	Seats       int        `json:"seats" example:"2"`
	Status      string     `json:"status" example:"confirmed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

type CreateReservationResponse struct {
	Reservation ReservationResponse `json:"reservation"`
	Message     string              `json:"message"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, EventID: r.EventID, UserID: r.UserID,
		UserName: r.UserName, UserEmail: r.UserEmail,
		Seats: r.Seats, Status: string(r.Status),
		CreatedAt: r.CreatedAt, CancelledAt: r.CancelledAt,
	}
}

// Create godoc
// @Summary 予約を作成
// @Description イベントの座席を確保し、予約を作成します
// @Tags reservations
// @Accept json
// @Produce json
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} CreateReservationResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string "イベントが存在しない"
// @Failure 502 {object} map[string]string "イベントサービス呼び出し失敗"
// @Failure 503 {object} map[string]string "イベントサービス遮断中"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	r, err := h.service.CreateReservation(c.Request().Context(), application.CreateReservationInput{
		EventID: req.EventID, UserID: req.UserID,
		UserName: req.UserName, UserEmail: req.UserEmail, Seats: req.Seats,
	})
	if err != nil {
		return mapCreateError(err)
	}

	return c.JSON(http.StatusCreated, CreateReservationResponse{
		Reservation: toReservationResponse(r),
		Message:     "予約を作成しました",
	})
}

func mapCreateError(err error) error {
	switch {
	case errors.Is(err, event.ErrServiceUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, event.ErrEventNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, event.ErrUpstreamFailure):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, event.ErrBookingRejected):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case isValidationError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, reservation.ErrEventIDRequired) ||
		errors.Is(err, reservation.ErrUserIDRequired) ||
		errors.Is(err, reservation.ErrUserNameRequired) ||
		errors.Is(err, reservation.ErrUserEmailInvalid) ||
		errors.Is(err, reservation.ErrSeatsRequired)
}

// GetAll godoc
// @Summary 全予約一覧を取得
// @Description 全予約を作成日時の新しい順で取得します
// @Tags reservations
// @Produce json
// @Success 200 {array} ReservationResponse
// @Router /reservations [get]
func (h *ReservationHandler) GetAll(c echo.Context) error {
	reservations, err := h.service.GetAllReservations(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toReservationResponses(reservations))
}

// GetByUserID godoc
// @Summary ユーザーの予約一覧を取得
// @Description 指定ユーザーの予約を作成日時の新しい順で取得します
// @Tags reservations
// @Produce json
// @Param userId path string true "ユーザーID"
// @Success 200 {array} ReservationResponse
// @Router /reservations/user/{userId} [get]
func (h *ReservationHandler) GetByUserID(c echo.Context) error {
	reservations, err := h.service.GetUserReservations(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toReservationResponses(reservations))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を取得します
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} map[string]string
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 確定済みの予約をキャンセルします
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} CreateReservationResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /reservations/{id}/cancel [put]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	r, err := h.service.CancelReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, CreateReservationResponse{
		Reservation: toReservationResponse(r),
		Message:     "予約をキャンセルしました",
	})
}

func toReservationResponses(reservations []*reservation.Reservation) []ReservationResponse {
	resp := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		resp[i] = toReservationResponse(r)
	}
	return resp
}
