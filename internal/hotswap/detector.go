package hotswap

import (
	"context"
)

// ChangeDetector はデバイストポロジ変更シグナルに反応し、変化を分類する
// 分類は連続する2回のRefresh間の台数の増減のみから導かれる
// （台数が同じ入れ替えは device_changed として扱われる既知の制限がある）
type ChangeDetector struct {
	registry *DeviceRegistry
	bus      *NotificationBus
	engine   *RecoveryEngine
}

// NewChangeDetector は新しいChangeDetectorを作成する
func NewChangeDetector(registry *DeviceRegistry, bus *NotificationBus, engine *RecoveryEngine) *ChangeDetector {
	return &ChangeDetector{
		registry: registry,
		bus:      bus,
		engine:   engine,
	}
}

// HandleSignal は変更シグナル（ペイロードなし）を1件処理する
// Refreshの完了とChangeEventの発行は、復旧試行の開始より必ず先行する
func (d *ChangeDetector) HandleSignal(ctx context.Context) {
	previousCount := d.registry.Size()

	devices, err := d.registry.Refresh(ctx)
	currentCount := len(devices)

	eventType := classifyChange(previousCount, currentCount)
	if err != nil {
		// 列挙に失敗した場合は変化の内容を分類できない
		eventType = EventUnknown
	}

	d.bus.Publish(newChangeEvent(eventType, devices))

	// どの分類であっても使用中のストリームが無効化された可能性があるため、
	// 変更1件につき必ず1回だけ復旧を試みる
	d.engine.Attempt(ctx)
}

// classifyChange は台数の増減から変化の種別を分類する
func classifyChange(previousCount, currentCount int) EventType {
	switch {
	case currentCount > previousCount:
		return EventDeviceAdded
	case currentCount < previousCount:
		return EventDeviceRemoved
	default:
		return EventDeviceChanged
	}
}
