package hotswap

import (
	"context"
	"log"
	"sync"
	"time"
)

// RecoveryEngine は中断されたキャプチャストリームの再取得を担う
// 試行は回数上限まで直列に実行され、k回目の失敗後は baseDelay * k だけ待機する
type RecoveryEngine struct {
	platform    Platform
	bus         *NotificationBus
	maxAttempts int
	baseDelay   time.Duration
	constraints StreamConstraints

	// 多重実行防止用
	running bool
	mu      sync.Mutex

	// 中断用（Teardown で閉じられる）
	abortCh   chan struct{}
	abortOnce sync.Once
}

// NewRecoveryEngine は新しいRecoveryEngineを作成する
func NewRecoveryEngine(platform Platform, bus *NotificationBus, settings Settings) *RecoveryEngine {
	return &RecoveryEngine{
		platform:    platform,
		bus:         bus,
		maxAttempts: settings.MaxAttempts,
		baseDelay:   settings.BaseDelay,
		constraints: StreamConstraints{
			Width:  settings.Width,
			Height: settings.Height,
			Audio:  false, // 音声は扱わない
		},
		abortCh: make(chan struct{}),
	}
}

// Attempt はストリーム取得の試行シーケンスを実行し、成功したかどうかを返す
// シーケンスは同時に1つのみ実行され、実行中の追加呼び出しは開始されずfalseを返す
// 最終試行の失敗後もエラーは返さず、結果は通知イベントとしてのみ発行される
func (e *RecoveryEngine) Attempt(ctx context.Context) bool {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		log.Println("復旧シーケンスが既に実行中のため新しいトリガーを無視します")
		return false
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	start := time.Now()

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if e.aborted() {
			return false
		}

		stream, err := e.platform.AcquireStream(ctx, e.constraints)
		if err == nil {
			elapsed := time.Since(start)
			if e.aborted() {
				// Teardown 後に完了した取り残しのシーケンスはイベントを発行しない
				_ = stream.Close()
				return false
			}
			log.Printf("ストリームを再取得しました (試行 %d/%d, 所要時間 %v)", attempt, e.maxAttempts, elapsed)
			e.bus.Publish(newRecoveredEvent(stream, elapsed))
			return true
		}

		// 失敗の種類（権限拒否・使用中・不在）によらず一律に再試行する
		log.Printf("ストリームの取得に失敗 (試行 %d/%d): %v", attempt, e.maxAttempts, err)

		if attempt < e.maxAttempts {
			if !e.wait(ctx, e.baseDelay*time.Duration(attempt)) {
				return false
			}
		}
	}

	total := time.Since(start)
	if e.aborted() {
		return false
	}
	log.Printf("復旧シーケンスが試行回数の上限に達しました (所要時間 %v)", total)
	e.bus.Publish(newRecoveryFailedEvent(total))
	return false
}

// Abort は実行中および以降のシーケンスを中断する
// Teardown 経路から呼ばれ、以降の試行とイベント発行を停止する
func (e *RecoveryEngine) Abort() {
	e.abortOnce.Do(func() {
		close(e.abortCh)
	})
}

// aborted は中断フラグの状態を返す
func (e *RecoveryEngine) aborted() bool {
	select {
	case <-e.abortCh:
		return true
	default:
		return false
	}
}

// wait はバックオフ待機を実行する
// 待機は中断・キャンセルに反応し、継続可能な場合のみtrueを返す
func (e *RecoveryEngine) wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-e.abortCh:
		return false
	case <-ctx.Done():
		return false
	}
}
