package hotswap

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Monitor はホットスワップ検知とストリーム復旧の各コンポーネントを束ねる
// プロセス全体のシングルトンではなく、所有するコンテキストごとに1インスタンスを作成し、
// プラットフォーム機能（列挙・変更シグナル・取得）を注入して使用する
type Monitor struct {
	platform Platform
	registry *DeviceRegistry
	bus      *NotificationBus
	engine   *RecoveryEngine
	detector *ChangeDetector

	// 制御用
	stopCh chan struct{}
	wg     sync.WaitGroup
	detach func()

	started  bool
	torndown bool
	mu       sync.Mutex
}

// NewMonitor は新しいMonitorを作成する
func NewMonitor(platform Platform, settings Settings) *Monitor {
	bus := NewNotificationBus()
	registry := NewDeviceRegistry(platform)
	engine := NewRecoveryEngine(platform, bus, settings)

	return &Monitor{
		platform: platform,
		registry: registry,
		bus:      bus,
		engine:   engine,
		detector: NewChangeDetector(registry, bus, engine),
		stopCh:   make(chan struct{}),
	}
}

// Start は初期スキャンを実行し、変更シグナルの監視を開始する
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.torndown {
		return fmt.Errorf("teardown済みのモニターは再開できません")
	}
	if m.started {
		return fmt.Errorf("モニターは既に開始されています")
	}

	// 初期スキャン（失敗しても0台として続行する）
	if _, err := m.registry.Refresh(ctx); err != nil {
		log.Printf("初期スキャンに失敗しました: %v", err)
	}

	signalCh, detach, err := m.platform.WatchChanges(ctx)
	if err != nil {
		return fmt.Errorf("デバイス変更シグナルの監視開始に失敗: %w", err)
	}
	m.detach = detach

	m.wg.Add(1)
	go m.handleSignals(ctx, signalCh)

	m.started = true
	return nil
}

// handleSignals は変更シグナルを1つの論理スレッドで直列に処理する
// 1件の処理内では Refresh 完了と ChangeEvent の発行が復旧試行より先行する
func (m *Monitor) handleSignals(ctx context.Context, signalCh <-chan struct{}) {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case _, ok := <-signalCh:
			if !ok {
				return
			}
			m.detector.HandleSignal(ctx)
		}
	}
}

// RefreshDevices はデバイス一覧を再取得して返す
// 列挙の失敗は致命的ではなく、空の一覧として観測される
func (m *Monitor) RefreshDevices(ctx context.Context) []Device {
	devices, _ := m.registry.Refresh(ctx)
	return devices
}

// GetAvailableDevices は現在のデバイス一覧を問い合わせなしで返す
func (m *Monitor) GetAvailableDevices() []Device {
	return m.registry.Snapshot()
}

// Subscribe はイベントの購読者を追加する
func (m *Monitor) Subscribe(subscriber Subscriber) {
	m.bus.Subscribe(subscriber)
}

// Unsubscribe はイベントの購読者を削除する
func (m *Monitor) Unsubscribe(subscriber Subscriber) {
	m.bus.Unsubscribe(subscriber)
}

// Teardown は監視を停止し、全購読者を解除する
// 実行中の復旧シーケンスは中断され、以降このインスタンスからイベントは一切発行されない
func (m *Monitor) Teardown() {
	m.mu.Lock()
	if m.torndown {
		m.mu.Unlock()
		return
	}
	m.torndown = true
	started := m.started
	m.mu.Unlock()

	close(m.stopCh)
	if m.detach != nil {
		m.detach()
	}

	// 取り残しの復旧シーケンスがTeardown後にイベントを発行しないよう先に中断する
	m.engine.Abort()

	if started {
		m.wg.Wait()
	}

	m.bus.Teardown()
}
