package main

import (
	"context"
	"log"

	"tsunagi/internal/config"
	"tsunagi/internal/hotswap"
	"tsunagi/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	// .env があれば読み込む（なくても続行する）
	_ = godotenv.Load()

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コンテキストを作成
	ctx := context.Background()

	// プラットフォームとモニターを作成
	platform := hotswap.NewLinuxPlatform(cfg.Hotswap.PollInterval)
	monitor := hotswap.NewMonitor(platform, cfg.Hotswap)
	if err := monitor.Start(ctx); err != nil {
		log.Fatalf("モニターの開始に失敗しました: %v", err)
	}
	defer monitor.Teardown()

	// サーバーを作成して起動
	srv := server.New(cfg, monitor)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
