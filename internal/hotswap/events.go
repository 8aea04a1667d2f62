package hotswap

import (
	"time"

	"github.com/google/uuid"
)

// EventType は通知イベントの種別を表す
type EventType string

const (
	// EventDeviceAdded はデバイスの増加を表す
	EventDeviceAdded EventType = "device_added"
	// EventDeviceRemoved はデバイスの減少を表す
	EventDeviceRemoved EventType = "device_removed"
	// EventDeviceChanged は台数が変わらない変更（入れ替え等）を表す
	EventDeviceChanged EventType = "device_changed"
	// EventUnknown は列挙に失敗し分類できなかった変更を表す
	EventUnknown EventType = "unknown"
	// EventStreamRecovered はストリーム復旧の成功を表す
	EventStreamRecovered EventType = "stream_recovered"
	// EventStreamRecoveryFailed はストリーム復旧の失敗（試行回数の枯渇）を表す
	EventStreamRecoveryFailed EventType = "stream_recovery_failed"
)

// Event は購読者へ配信される通知イベントを表す
type Event struct {
	ID           string        // イベントの一意識別子
	Type         EventType     // イベント種別
	Devices      []Device      // 発行時点のデバイススナップショット（デバイス変更イベントのみ）
	Stream       Stream        // 再取得されたストリーム（stream_recovered のみ）
	RecoveryTime time.Duration // 復旧に要した時間（stream_recovered のみ）
	TotalTime    time.Duration // 全試行に要した時間（stream_recovery_failed のみ）
	Timestamp    time.Time     // イベント発行時刻
}

// newChangeEvent はデバイス変更イベントを作成する
func newChangeEvent(eventType EventType, devices []Device) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Devices:   devices,
		Timestamp: time.Now(),
	}
}

// newRecoveredEvent はストリーム復旧成功イベントを作成する
func newRecoveredEvent(stream Stream, recoveryTime time.Duration) Event {
	return Event{
		ID:           uuid.New().String(),
		Type:         EventStreamRecovered,
		Stream:       stream,
		RecoveryTime: recoveryTime,
		Timestamp:    time.Now(),
	}
}

// newRecoveryFailedEvent はストリーム復旧失敗イベントを作成する
func newRecoveryFailedEvent(totalTime time.Duration) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      EventStreamRecoveryFailed,
		TotalTime: totalTime,
		Timestamp: time.Now(),
	}
}
