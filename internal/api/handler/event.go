package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
)

type EventHandler struct {
	service EventServiceInterface
}

func NewEventHandler(s EventServiceInterface) *EventHandler {
	return &EventHandler{service: s}
}

type EventResponse struct {
	ID             int64  `json:"id" example:"1"`
	Name           string `json:"name" example:"夏フェス2026"`
	Description    string `json:"description" example:"野外音楽フェスティバル"`
	Date           string `json:"date" example:"2026-08-01T18:00:00"`
	Location       string `json:"location" example:"東京"`
	TotalCapacity  int    `json:"totalCapacity" example:"100"`
	BookedSeats    int    `json:"bookedSeats" example:"40"`
	AvailableSeats int    `json:"availableSeats" example:"60"`
}

func toEventResponse(ev *event.Event) EventResponse {
	return EventResponse{
		ID: ev.ID, Name: ev.Name, Description: ev.Description,
		Date: ev.Date, Location: ev.Location,
		TotalCapacity: ev.TotalCapacity, BookedSeats: ev.BookedSeats,
		AvailableSeats: ev.AvailableSeats(),
	}
}

// GetAll godoc
// @Summary イベント一覧を取得
// @Description イベント情報サービスから全イベントを取得します
// @Tags events
// @Produce json
// @Success 200 {array} EventResponse
// @Failure 502 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /events [get]
func (h *EventHandler) GetAll(c echo.Context) error {
	events, err := h.service.GetAllEvents(c.Request().Context())
	if err != nil {
		return mapEventError(err)
	}
	resp := make([]EventResponse, len(events))
	for i, ev := range events {
		resp[i] = toEventResponse(ev)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary イベントを取得
// @Description イベント情報サービスから指定IDのイベントを取得します
// @Tags events
// @Produce json
// @Param id path int true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なイベントID")
	}

	ev, err := h.service.GetEventByID(c.Request().Context(), id)
	if err != nil {
		return mapEventError(err)
	}
	return c.JSON(http.StatusOK, toEventResponse(ev))
}

func mapEventError(err error) error {
	switch {
	case errors.Is(err, event.ErrServiceUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, event.ErrEventNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, event.ErrUpstreamFailure):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
