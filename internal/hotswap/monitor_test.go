package hotswap

import (
	"context"
	"testing"
	"time"
)

// waitFor は条件が満たされるまでポーリングで待機する
func waitFor(t *testing.T, timeout time.Duration, message string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("条件が時間内に満たされませんでした: %s", message)
}

func TestMonitor_EndToEnd(t *testing.T) {
	ctx := context.Background()
	mock := NewMockPlatform([]Device{
		newTestDevice("/dev/video0", "テストカメラ 1"),
		newTestDevice("/dev/video1", "テストカメラ 2"),
	})

	monitor := NewMonitor(mock, Settings{
		MaxAttempts: 3,
		BaseDelay:   20 * time.Millisecond,
		Width:       1280,
		Height:      720,
	})
	defer monitor.Teardown()

	subscriber := &countingSubscriber{}
	monitor.Subscribe(subscriber)

	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 初期スキャンで2台が登録される
	if len(monitor.GetAvailableDevices()) != 2 {
		t.Fatalf("Expected 2 devices after start, got %d", len(monitor.GetAvailableDevices()))
	}

	// デバイスが1台抜かれ、復旧は2回失敗した後に成功する
	mock.SetAcquireScript(
		ErrMockAcquire("デバイス使用中"),
		ErrMockAcquire("デバイス使用中"),
		nil,
	)
	mock.RemoveDevice("/dev/video1")
	mock.FireChange()

	waitFor(t, 3*time.Second, "変更イベントと復旧イベントの受信", func() bool {
		return subscriber.Count() >= 2
	})

	events := subscriber.Events()
	if events[0].Type != EventDeviceRemoved {
		t.Errorf("Expected device_removed event, got %s", events[0].Type)
	}
	if len(events[0].Devices) != 1 || events[0].Devices[0].ID != "/dev/video0" {
		t.Errorf("Expected snapshot with /dev/video0 only, got %v", events[0].Devices)
	}

	if events[1].Type != EventStreamRecovered {
		t.Fatalf("Expected stream_recovered event, got %s", events[1].Type)
	}
	// 20ms + 40ms のバックオフを挟んでいるため復旧時間はそれ以上になる
	if events[1].RecoveryTime < 50*time.Millisecond {
		t.Errorf("Expected recovery time of at least 50ms, got %v", events[1].RecoveryTime)
	}
	if len(eventsOfType(events, EventStreamRecoveryFailed)) != 0 {
		t.Error("Expected no failed event")
	}
}

func TestMonitor_TeardownStopsEvents(t *testing.T) {
	ctx := context.Background()
	mock := NewMockPlatform([]Device{newTestDevice("/dev/video0", "テストカメラ 1")})

	monitor := NewMonitor(mock, Settings{
		MaxAttempts: 1,
		BaseDelay:   1 * time.Millisecond,
		Width:       1280,
		Height:      720,
	})

	subscriber := &countingSubscriber{}
	monitor.Subscribe(subscriber)

	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	monitor.Teardown()

	// Teardown後にシグナルが発火しても一切イベントは発行されない
	mock.FireChange()
	time.Sleep(50 * time.Millisecond)

	if subscriber.Count() != 0 {
		t.Errorf("Expected no events after teardown, got %d", subscriber.Count())
	}

	// Teardownは冪等
	monitor.Teardown()
}

func TestMonitor_TeardownAbortsRecovery(t *testing.T) {
	ctx := context.Background()
	mock := NewMockPlatform([]Device{newTestDevice("/dev/video0", "テストカメラ 1")})
	mock.SetAcquireScript(
		ErrMockAcquire("デバイス使用中"),
		ErrMockAcquire("デバイス使用中"),
		ErrMockAcquire("デバイス使用中"),
	)

	monitor := NewMonitor(mock, Settings{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		Width:       1280,
		Height:      720,
	})

	subscriber := &countingSubscriber{}
	monitor.Subscribe(subscriber)

	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	mock.FireChange()

	// 変更イベントが発行され、復旧シーケンスがバックオフに入るのを待つ
	waitFor(t, 2*time.Second, "変更イベントの受信", func() bool {
		return subscriber.Count() >= 1
	})

	// バックオフ待機中のTeardownでシーケンスは中断され、結果イベントは発行されない
	monitor.Teardown()
	time.Sleep(100 * time.Millisecond)

	events := subscriber.Events()
	if len(eventsOfType(events, EventStreamRecoveryFailed)) != 0 {
		t.Error("Expected no failed event after teardown")
	}
	if len(eventsOfType(events, EventStreamRecovered)) != 0 {
		t.Error("Expected no recovered event after teardown")
	}
}

func TestMonitor_RefreshDevices(t *testing.T) {
	ctx := context.Background()
	mock := NewMockPlatform([]Device{newTestDevice("/dev/video0", "テストカメラ 1")})

	monitor := NewMonitor(mock, DefaultSettings())
	defer monitor.Teardown()

	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	mock.AddDevice(newTestDevice("/dev/video2", "テストカメラ 2"))

	devices := monitor.RefreshDevices(ctx)
	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices after refresh, got %d", len(devices))
	}
	if len(monitor.GetAvailableDevices()) != 2 {
		t.Errorf("Expected snapshot to match refresh result")
	}
}

func TestMonitor_StartTwice(t *testing.T) {
	ctx := context.Background()
	mock := NewMockPlatform(nil)

	monitor := NewMonitor(mock, DefaultSettings())
	defer monitor.Teardown()

	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := monitor.Start(ctx); err == nil {
		t.Error("Expected error on second start")
	}
}

func TestMonitor_StartAfterTeardown(t *testing.T) {
	ctx := context.Background()
	mock := NewMockPlatform(nil)

	monitor := NewMonitor(mock, DefaultSettings())
	monitor.Teardown()

	if err := monitor.Start(ctx); err == nil {
		t.Error("Expected error when starting a torn-down monitor")
	}
}
