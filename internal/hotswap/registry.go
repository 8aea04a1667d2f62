package hotswap

import (
	"context"
	"log"
	"sync"
)

// DeviceRegistry はビデオ入力デバイスの最新セットを保持する
// セットは Refresh のたびに全置換され、差分のマージは行わない
type DeviceRegistry struct {
	platform Platform
	devices  []Device
	mu       sync.RWMutex
}

// NewDeviceRegistry は新しいDeviceRegistryを作成する
func NewDeviceRegistry(platform Platform) *DeviceRegistry {
	return &DeviceRegistry{
		platform: platform,
	}
}

// Refresh はプラットフォームの列挙機能を問い合わせ、ビデオ入力のみに絞り込んで
// 内部セットを全置換し、新しい一覧（プラットフォームの報告順）を返す
// 列挙に失敗した場合はセットを空にし、エラーは致命的ではない（呼び出し側は0台を観測する）
func (r *DeviceRegistry) Refresh(ctx context.Context) ([]Device, error) {
	enumerated, err := r.platform.EnumerateDevices(ctx)
	if err != nil {
		log.Printf("デバイスの列挙に失敗したため登録を空にします: %v", err)
		r.mu.Lock()
		r.devices = nil
		r.mu.Unlock()
		return nil, err
	}

	// ビデオ入力デバイスのみに絞り込む
	filtered := make([]Device, 0, len(enumerated))
	for _, device := range enumerated {
		if device.Kind != KindVideoInput {
			continue
		}
		device.Available = true
		filtered = append(filtered, device)
	}

	r.mu.Lock()
	r.devices = filtered
	r.mu.Unlock()

	return copyDevices(filtered), nil
}

// Snapshot は現在のデバイス一覧を問い合わせなしで返す
func (r *DeviceRegistry) Snapshot() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyDevices(r.devices)
}

// Size は現在のデバイス台数を返す
func (r *DeviceRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// copyDevices はデバイス一覧のコピーを返す
func copyDevices(devices []Device) []Device {
	result := make([]Device, len(devices))
	copy(result, devices)
	return result
}
