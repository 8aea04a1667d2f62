// Package server ホットスワップ監視の状態を外部の協調コンポーネントへ公開するHTTPサーバー
//
// # 責務
// - ヘルスチェックとシステム状態の公開
// - 現在のデバイス一覧の取得と再スキャンの受け付け
// - WebSocketによるデバイス変更・ストリーム復旧イベントの配信
//
// # 仕様
// - GET /health: ヘルスチェック
// - GET /api/status: サーバーと監視の状態
// - GET /api/devices: 現在のデバイス一覧
// - POST /api/devices/refresh: デバイス一覧の再取得
// - GET /api/events: イベント配信用WebSocket
package server
