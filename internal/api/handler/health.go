package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler はヘルスチェックハンドラー
type HealthHandler struct {
	brokerConnected func() bool
}

// NewHealthHandler はHealthHandlerを作成する
// brokerConnected はメッセージブローカーとの接続状態を返す
func NewHealthHandler(brokerConnected func() bool) *HealthHandler {
	return &HealthHandler{brokerConnected: brokerConnected}
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string `json:"status"`
	Broker    string `json:"broker"`
	Timestamp string `json:"timestamp"`
}

// Check はヘルスチェックを行う
// ブローカー未接続でもサービス自体は稼働扱いとする
// @Summary ヘルスチェック
// @Description アプリケーションの健全性を確認する
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) Check(c echo.Context) error {
	broker := "disconnected"
	if h.brokerConnected != nil && h.brokerConnected() {
		broker = "connected"
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Broker:    broker,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
