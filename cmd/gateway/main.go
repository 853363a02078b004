// Gatewayサービスのエントリポイント。
// ブラウザとバックエンドAPIの間に立ち、HttpOnly Cookieに保存されたトークンを管理する。
// アクセストークンの期限切れ前の再発行と、Bearerトークンを付けた転送を担当する。
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/nao1215/carbongate/internal/config"
	"github.com/nao1215/carbongate/internal/gateway"
)

// envFile はローカル開発時に読み込む環境変数ファイル。
const envFile = ".env"

func main() {
	// .envがあれば読み込む。既に設定済みの環境変数は上書きしない
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("%sの読み込みに失敗: %v", envFile, err)
		}
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := gateway.NewServer(cfg)
	if err != nil {
		log.Fatalf("Gatewayサーバーの初期化に失敗: %v", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Printf("リソースの解放に失敗: %v", err)
		}
	}()

	log.Printf("Gatewayサービスを起動します: :%s (backend=%s, audit=%t)", cfg.Port, cfg.BackendURL, cfg.Audit.Enabled)
	if err := server.Run(); err != nil {
		log.Printf("Gatewayサービスの起動に失敗: %v", err)
	}
}
