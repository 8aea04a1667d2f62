package hotswap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockPlatform はテスト用のモックPlatform実装
type MockPlatform struct {
	devices      []Device
	enumerateErr error
	signalCh     chan struct{}

	// ストリーム取得のスクリプト（先頭から1呼び出しごとに消費、nilは成功）
	acquireScript []error
	acquireDelay  time.Duration
	acquireCalls  int

	mu sync.Mutex
}

// NewMockPlatform は新しいMockPlatformを作成する
func NewMockPlatform(devices []Device) *MockPlatform {
	return &MockPlatform{
		devices:  copyDevices(devices),
		signalCh: make(chan struct{}, 8),
	}
}

// EnumerateDevices はモックデバイス一覧を返す
func (m *MockPlatform) EnumerateDevices(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.enumerateErr != nil {
		return nil, m.enumerateErr
	}
	return copyDevices(m.devices), nil
}

// WatchChanges はテストから発火できるシグナルチャンネルを返す
func (m *MockPlatform) WatchChanges(_ context.Context) (<-chan struct{}, func(), error) {
	return m.signalCh, func() {}, nil
}

// AcquireStream はスクリプトに従って成功またはエラーを返す
// スクリプトが空の場合は常に成功する
func (m *MockPlatform) AcquireStream(_ context.Context, _ StreamConstraints) (Stream, error) {
	m.mu.Lock()
	m.acquireCalls++
	var result error
	if len(m.acquireScript) > 0 {
		result = m.acquireScript[0]
		m.acquireScript = m.acquireScript[1:]
	}
	delay := m.acquireDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if result != nil {
		return nil, result
	}
	return &MockStream{id: uuid.New().String()}, nil
}

// AddDevice はテスト用にデバイスを追加する
func (m *MockPlatform) AddDevice(device Device) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 重複チェック
	for _, d := range m.devices {
		if d.ID == device.ID {
			return
		}
	}
	m.devices = append(m.devices, device)
}

// RemoveDevice はテスト用にデバイスを削除する
func (m *MockPlatform) RemoveDevice(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range m.devices {
		if d.ID == id {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			return
		}
	}
}

// SetEnumerateError はテスト用に列挙の失敗を設定する
func (m *MockPlatform) SetEnumerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enumerateErr = err
}

// SetAcquireScript はストリーム取得の結果列を設定する（nilは成功）
func (m *MockPlatform) SetAcquireScript(results ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquireScript = append([]error{}, results...)
}

// SetAcquireDelay は1回のストリーム取得にかかる時間を設定する
func (m *MockPlatform) SetAcquireDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquireDelay = delay
}

// AcquireCalls はストリーム取得が呼ばれた回数を返す
func (m *MockPlatform) AcquireCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquireCalls
}

// FireChange はデバイストポロジ変更シグナルを発火する
func (m *MockPlatform) FireChange() {
	select {
	case m.signalCh <- struct{}{}:
	default:
	}
}

// ErrMockAcquire はテスト用のストリーム取得エラーを生成する
func ErrMockAcquire(reason string) error {
	return fmt.Errorf("モック: ストリーム取得に失敗 (%s)", reason)
}

// MockStream はテスト用のモックストリーム実装
type MockStream struct {
	id     string
	closed bool
	mu     sync.Mutex
}

// ID はストリームの一意識別子を返す
func (s *MockStream) ID() string {
	return s.id
}

// Close はストリームを閉じる
func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed はストリームが閉じられたかどうかを返す
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
