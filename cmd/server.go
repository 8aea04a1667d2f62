// Package main はTsunagiサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"tsunagi/internal/config"
	"tsunagi/internal/hotswap"
	"tsunagi/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	// コマンドラインオプション
	var (
		host = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		help = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Tsunagi")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// .env があれば読み込む（なくても続行する）
	_ = godotenv.Load()

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// プラットフォームとモニターを作成
	ctx := context.Background()
	platform := hotswap.NewLinuxPlatform(cfg.Hotswap.PollInterval)
	monitor := hotswap.NewMonitor(platform, cfg.Hotswap)
	if err := monitor.Start(ctx); err != nil {
		log.Fatalf("モニターの開始に失敗しました: %v", err)
	}
	defer monitor.Teardown()

	// サーバーを起動
	srv := server.New(cfg, monitor)
	log.Printf("Tsunagi サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
