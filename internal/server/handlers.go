package server

import (
	"net/http"
	"time"

	"tsunagi/internal/hotswap"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status    string       `json:"status"`
	Server    ServerInfo   `json:"server"`
	Devices   int          `json:"devices"`
	Recovery  RecoveryInfo `json:"recovery"`
	Timestamp time.Time    `json:"timestamp"`
}

// ServerInfo はサーバー情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// RecoveryInfo は復旧設定の情報
type RecoveryInfo struct {
	MaxAttempts int   `json:"max_attempts"`
	BaseDelayMs int64 `json:"base_delay_ms"`
}

// DeviceInfo はデバイス情報
type DeviceInfo struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
}

// DevicesResponse はデバイス一覧のレスポンス
type DevicesResponse struct {
	Devices []DeviceInfo `json:"devices"`
}

// EventMessage はWebSocketで配信されるイベント
type EventMessage struct {
	ID             string       `json:"id"`
	Type           string       `json:"type"`
	Devices        []DeviceInfo `json:"devices,omitempty"`
	StreamID       string       `json:"stream_id,omitempty"`
	RecoveryTimeMs int64        `json:"recovery_time_ms,omitempty"`
	TotalTimeMs    int64        `json:"total_time_ms,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}

// handleHealth はヘルスチェックエンドポイントの実装
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleStatus はシステム状態取得エンドポイントの実装
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status: "running",
		Server: ServerInfo{
			Host: s.config.Server.Host,
			Port: s.config.Server.Port,
		},
		Devices: len(s.monitor.GetAvailableDevices()),
		Recovery: RecoveryInfo{
			MaxAttempts: s.config.Hotswap.MaxAttempts,
			BaseDelayMs: s.config.Hotswap.BaseDelay.Milliseconds(),
		},
		Timestamp: time.Now(),
	})
}

// handleDevices はデバイス一覧取得エンドポイントの実装
func (s *Server) handleDevices(c *gin.Context) {
	c.JSON(http.StatusOK, DevicesResponse{
		Devices: toDeviceInfos(s.monitor.GetAvailableDevices()),
	})
}

// handleRefreshDevices はデバイス一覧の再取得エンドポイントの実装
func (s *Server) handleRefreshDevices(c *gin.Context) {
	devices := s.monitor.RefreshDevices(c.Request.Context())
	c.JSON(http.StatusOK, DevicesResponse{
		Devices: toDeviceInfos(devices),
	})
}

// upgrader はWebSocketへのアップグレード設定
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// eventClient は1つのWebSocket接続に対応するイベント購読者
type eventClient struct {
	ch chan hotswap.Event
}

// Notify はイベントを配信チャンネルへ渡す
// 接続側の書き込みが追いつかない場合はイベントを破棄し、発行側を塞がない
func (c *eventClient) Notify(event hotswap.Event) {
	select {
	case c.ch <- event:
	default:
	}
}

// handleEvents はイベント配信用WebSocketエンドポイントの実装
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgradeが自身でエラーレスポンスを書いている
		return
	}

	client := &eventClient{ch: make(chan hotswap.Event, 16)}
	s.monitor.Subscribe(client)
	defer func() {
		s.monitor.Unsubscribe(client)
		_ = conn.Close()
	}()

	// 切断検知用の読み取りループ
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case event := <-client.ch:
			if err := conn.WriteJSON(toEventMessage(event)); err != nil {
				return
			}
		}
	}
}

// ヘルパー関数

// toDeviceInfos はデバイス一覧をレスポンス形式に変換する
func toDeviceInfos(devices []hotswap.Device) []DeviceInfo {
	infos := make([]DeviceInfo, 0, len(devices))
	for _, device := range devices {
		infos = append(infos, DeviceInfo{
			ID:        device.ID,
			Label:     device.Label,
			Kind:      string(device.Kind),
			Available: device.Available,
		})
	}
	return infos
}

// toEventMessage はイベントを配信形式に変換する
func toEventMessage(event hotswap.Event) EventMessage {
	msg := EventMessage{
		ID:        event.ID,
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
	}

	if event.Devices != nil {
		msg.Devices = toDeviceInfos(event.Devices)
	}
	if event.Stream != nil {
		msg.StreamID = event.Stream.ID()
	}
	if event.RecoveryTime > 0 {
		msg.RecoveryTimeMs = event.RecoveryTime.Milliseconds()
	}
	if event.TotalTime > 0 {
		msg.TotalTimeMs = event.TotalTime.Milliseconds()
	}

	return msg
}
