package hotswap

import (
	"context"
	"time"
)

// DeviceKind はデバイスの種別を表す
type DeviceKind string

const (
	// KindVideoInput はビデオ入力デバイスを表す
	KindVideoInput DeviceKind = "video_input"
)

// Device はビデオ入力デバイスの情報を表す
type Device struct {
	ID        string     // デバイスの一意識別子（例: /dev/video0）
	Label     string     // デバイスの表示名
	Kind      DeviceKind // デバイス種別
	Available bool       // 利用可能かどうか
}

// StreamConstraints はストリーム取得時の制約を表す
type StreamConstraints struct {
	Width  int  // 画像幅
	Height int  // 画像高さ
	Audio  bool // 音声を含めるか（本システムでは常にfalse）
}

// Stream は取得済みキャプチャストリームの不透明なハンドル
type Stream interface {
	// ID はストリームの一意識別子を返す
	ID() string

	// Close はストリームを解放する
	Close() error
}

// Platform はデバイス列挙・変更シグナル・ストリーム取得のプラットフォーム機能を抽象化する
// テストでは決定的なスタブに差し替えられる
type Platform interface {
	// EnumerateDevices は現在接続されているデバイス一覧を返す
	EnumerateDevices(ctx context.Context) ([]Device, error)

	// WatchChanges はデバイストポロジ変更シグナルの受信チャンネルと解除関数を返す
	// シグナルにペイロードはない
	WatchChanges(ctx context.Context) (<-chan struct{}, func(), error)

	// AcquireStream は制約に従ってキャプチャストリームを取得する
	AcquireStream(ctx context.Context, constraints StreamConstraints) (Stream, error)
}

// Subscriber はイベント通知を受け取る購読者のインターフェース
type Subscriber interface {
	// Notify はイベントを受け取る
	// Notify 内での panic は配信側で回収され、他の購読者への配信には影響しない
	Notify(event Event)
}

// Settings はホットスワップ監視の設定を表す
type Settings struct {
	MaxAttempts  int           // 復旧シーケンスの最大試行回数
	BaseDelay    time.Duration // バックオフの基準待機時間
	Width        int           // ストリーム取得時の画像幅
	Height       int           // ストリーム取得時の画像高さ
	PollInterval time.Duration // プラットフォームのデバイスポーリング間隔
}

// DefaultSettings はデフォルト設定を返す
func DefaultSettings() Settings {
	return Settings{
		MaxAttempts:  3,
		BaseDelay:    1000 * time.Millisecond,
		Width:        1280,
		Height:       720,
		PollInterval: 2 * time.Second,
	}
}
