package config

import (
	"fmt"
	"os"
	"time"

	"tsunagi/internal/hotswap"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig
	Hotswap hotswap.Settings
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string // リッスンするホスト
	Port int    // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration // 読み込みタイムアウト
	WriteTimeout time.Duration // 書き込みタイムアウト
}

// Load は設定を読み込む
// 環境変数が設定されていない項目はデフォルト値を使用する
func Load() (*Config, error) {
	defaults := hotswap.DefaultSettings()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("PORT", 8080),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // イベント配信用にタイムアウト無効化
		},
		Hotswap: hotswap.Settings{
			MaxAttempts:  getEnvAsIntOrDefault("RECOVERY_MAX_ATTEMPTS", defaults.MaxAttempts),
			BaseDelay:    getEnvAsMillisOrDefault("RECOVERY_BASE_DELAY_MS", defaults.BaseDelay),
			Width:        getEnvAsIntOrDefault("CAPTURE_WIDTH", defaults.Width),
			Height:       getEnvAsIntOrDefault("CAPTURE_HEIGHT", defaults.Height),
			PollInterval: getEnvAsMillisOrDefault("DEVICE_POLL_INTERVAL_MS", defaults.PollInterval),
		},
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// ホットスワップ設定の検証
	if c.Hotswap.MaxAttempts < 1 {
		return fmt.Errorf("無効な最大試行回数: %d", c.Hotswap.MaxAttempts)
	}
	if c.Hotswap.BaseDelay < 0 {
		return fmt.Errorf("無効なバックオフ基準時間: %v", c.Hotswap.BaseDelay)
	}
	if c.Hotswap.Width <= 0 || c.Hotswap.Width > 4096 {
		return fmt.Errorf("無効な幅: %d", c.Hotswap.Width)
	}
	if c.Hotswap.Height <= 0 || c.Hotswap.Height > 4096 {
		return fmt.Errorf("無効な高さ: %d", c.Hotswap.Height)
	}
	if c.Hotswap.PollInterval <= 0 {
		return fmt.Errorf("無効なポーリング間隔: %v", c.Hotswap.PollInterval)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsMillisOrDefault は環境変数をミリ秒数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsMillisOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return time.Duration(intVal) * time.Millisecond
		}
	}
	return defaultValue
}
