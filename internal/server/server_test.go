package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tsunagi/internal/config"
	"tsunagi/internal/hotswap"

	"github.com/gorilla/websocket"
)

// newTestServer はテスト用のサーバーとモックプラットフォームを作成する
func newTestServer(t *testing.T) (*Server, *hotswap.MockPlatform) {
	t.Helper()

	mock := hotswap.NewMockPlatform([]hotswap.Device{
		{ID: "/dev/video0", Label: "テストカメラ 1", Kind: hotswap.KindVideoInput, Available: true},
		{ID: "/dev/video2", Label: "テストカメラ 2", Kind: hotswap.KindVideoInput, Available: true},
	})

	settings := hotswap.Settings{
		MaxAttempts:  1,
		BaseDelay:    1 * time.Millisecond,
		Width:        1280,
		Height:       720,
		PollInterval: 1 * time.Second,
	}

	monitor := hotswap.NewMonitor(mock, settings)
	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("モニターの開始に失敗しました: %v", err)
	}
	t.Cleanup(monitor.Teardown)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			ReadTimeout: 5 * time.Second,
		},
		Hotswap: settings,
	}

	return New(cfg, monitor), mock
}

// TestHandleHealth はヘルスチェックエンドポイントをテストする
func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("ステータスコードが200ではありません: %d", recorder.Code)
	}

	var response HealthResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("レスポンスの解析に失敗しました: %v", err)
	}
	if response.Status != "healthy" {
		t.Errorf("ステータスがhealthyではありません: %s", response.Status)
	}
}

// TestHandleStatus はシステム状態エンドポイントをテストする
func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	srv.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("ステータスコードが200ではありません: %d", recorder.Code)
	}

	var response StatusResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("レスポンスの解析に失敗しました: %v", err)
	}
	if response.Status != "running" {
		t.Errorf("ステータスがrunningではありません: %s", response.Status)
	}
	if response.Devices != 2 {
		t.Errorf("デバイス数が2ではありません: %d", response.Devices)
	}
	if response.Recovery.MaxAttempts != 1 {
		t.Errorf("最大試行回数が反映されていません: %d", response.Recovery.MaxAttempts)
	}
}

// TestHandleDevices はデバイス一覧エンドポイントをテストする
func TestHandleDevices(t *testing.T) {
	srv, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	srv.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("ステータスコードが200ではありません: %d", recorder.Code)
	}

	var response DevicesResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("レスポンスの解析に失敗しました: %v", err)
	}
	if len(response.Devices) != 2 {
		t.Fatalf("デバイス数が2ではありません: %d", len(response.Devices))
	}
	if response.Devices[0].ID != "/dev/video0" {
		t.Errorf("デバイスIDが一致しません: %s", response.Devices[0].ID)
	}
	if response.Devices[0].Kind != "video_input" {
		t.Errorf("デバイス種別が一致しません: %s", response.Devices[0].Kind)
	}
}

// TestHandleRefreshDevices はデバイス再取得エンドポイントをテストする
func TestHandleRefreshDevices(t *testing.T) {
	srv, mock := newTestServer(t)

	// デバイスを追加して再取得を要求する
	mock.AddDevice(hotswap.Device{
		ID:        "/dev/video4",
		Label:     "テストカメラ 3",
		Kind:      hotswap.KindVideoInput,
		Available: true,
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/devices/refresh", nil)
	srv.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("ステータスコードが200ではありません: %d", recorder.Code)
	}

	var response DevicesResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("レスポンスの解析に失敗しました: %v", err)
	}
	if len(response.Devices) != 3 {
		t.Errorf("再取得後のデバイス数が3ではありません: %d", len(response.Devices))
	}
}

// TestHandleEvents はWebSocketイベント配信をテストする
func TestHandleEvents(t *testing.T) {
	srv, mock := newTestServer(t)

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	url := "ws" + strings.TrimPrefix(testServer.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket接続に失敗しました: %v", err)
	}
	defer func() { _ = conn.Close() }()

	// 購読が登録されるのを待ってからシグナルを発火する
	time.Sleep(100 * time.Millisecond)
	mock.FireChange()

	// 台数が変わらないためdevice_changedイベントが配信される
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var changeMessage EventMessage
	if err := conn.ReadJSON(&changeMessage); err != nil {
		t.Fatalf("変更イベントの受信に失敗しました: %v", err)
	}
	if changeMessage.Type != "device_changed" {
		t.Errorf("イベント種別がdevice_changedではありません: %s", changeMessage.Type)
	}
	if len(changeMessage.Devices) != 2 {
		t.Errorf("イベントのデバイス数が2ではありません: %d", len(changeMessage.Devices))
	}

	// 続けてストリーム復旧イベントが配信される（モックの取得は既定で成功する）
	var recoveredMessage EventMessage
	if err := conn.ReadJSON(&recoveredMessage); err != nil {
		t.Fatalf("復旧イベントの受信に失敗しました: %v", err)
	}
	if recoveredMessage.Type != "stream_recovered" {
		t.Errorf("イベント種別がstream_recoveredではありません: %s", recoveredMessage.Type)
	}
	if recoveredMessage.StreamID == "" {
		t.Error("ストリームIDが設定されていません")
	}
}
