// Package hotswap ビデオ入力デバイスのホットスワップ検知とストリーム復旧を担う
//
// # 責務
// - ビデオ入力デバイスの最新セットの保持（DeviceRegistry）
// - デバイストポロジ変更シグナルへの反応と変化の分類（ChangeDetector）
// - 中断されたキャプチャストリームの再取得（RecoveryEngine、回数上限・バックオフ付き）
// - 状態遷移イベントの購読者への配信（NotificationBus、購読者ごとの失敗分離）
// - 上記を束ねる Monitor による公開操作の提供
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - デバイスの抜き差しを実行時に検知したい
// - デバイス変更で無効化されたストリームを自動的に再取得したい
// - デバイス変更・復旧結果のイベントを複数の購読者へ配信したい
//
// # 仕様
// - 変化の分類はデバイス台数の増減のみで行う（台数が同じ入れ替えは device_changed になる既知の制限）
// - 復旧は最大試行回数まで直列に実行され、k回目の失敗後は baseDelay * k だけ待機する
// - 復旧シーケンスは同時に1つのみ実行され、実行中の追加トリガーは無視される
// - Teardown 後は中断フラグにより一切のイベントが発行されない
// - 購読者の panic は回収・記録され、他の購読者への配信は継続する
//
// # 前提要件
//   - v4l-utils: カメラ名の取得に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package hotswap
