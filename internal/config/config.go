// Package config はGatewayの設定を提供する。
//
// 設定はYAMLファイル（任意）と環境変数から読み込む。ファイルが指定された場合は
// ファイルの値の上に環境変数を重ねる。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config はGatewayの設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `yaml:"port" env:"PORT" env-default:"8080"`
	// BackendURL はバックエンドAPIのベースURL。
	BackendURL string `yaml:"backend_url" env:"BACKEND_URL" env-default:"https://api.blogever.buttnetworks.com"`
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	// Credential はトークン再発行に関する設定。
	Credential CredentialConfig `yaml:"credential"`
	// ForwardTimeout はバックエンドへの転送リクエストのタイムアウト。
	ForwardTimeout time.Duration `yaml:"forward_timeout" env:"FORWARD_TIMEOUT" env-default:"30s"`
	// Cookie はセッションCookieの属性。
	Cookie CookieConfig `yaml:"cookie"`
	// Audit は監査ログの設定。
	Audit AuditConfig `yaml:"audit"`
}

// CredentialConfig はトークン再発行に関する設定。
type CredentialConfig struct {
	// RefreshThreshold はアクセストークンを期限切れ間近とみなす残り時間。
	RefreshThreshold time.Duration `yaml:"refresh_threshold" env:"REFRESH_THRESHOLD" env-default:"60s"`
	// RefreshTimeout はトークン再発行リクエストのタイムアウト。
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"REFRESH_TIMEOUT" env-default:"10s"`
}

// CookieConfig はセッションCookieの属性。
type CookieConfig struct {
	// Secure はCookieにSecure属性を付けるかどうか。ローカル開発以外ではtrueにする。
	Secure bool `yaml:"secure" env:"COOKIE_SECURE" env-default:"true"`
	// Domain はCookieのDomain属性。空の場合はホストのみ。
	Domain string `yaml:"domain" env:"COOKIE_DOMAIN"`
}

// AuditConfig は監査ログの設定。
type AuditConfig struct {
	// Enabled は監査ログを記録するかどうか。
	Enabled bool `yaml:"enabled" env:"AUDIT_ENABLED" env-default:"true"`
	// DBPath は監査ログを保存するSQLiteファイルのパス。
	DBPath string `yaml:"db_path" env:"AUDIT_DB_PATH" env-default:"/data/gateway.db"`
}

// Load は設定を読み込む。
// pathが空の場合は環境変数CONFIG_PATHを参照し、それも空なら環境変数のみから読み込む。
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		// ReadConfigはファイルの読み込み後に環境変数を重ねる
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("設定ファイル %q の読み込みに失敗: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("環境変数からの設定読み込みに失敗: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値の整合性を検証する。
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URLが不正です: %q", c.BackendURL)
	}
	if c.Port == "" {
		return errors.New("PORTが設定されていません")
	}
	if c.Credential.RefreshThreshold < 0 {
		return errors.New("REFRESH_THRESHOLDは0以上である必要があります")
	}
	if c.Credential.RefreshTimeout <= 0 {
		return errors.New("REFRESH_TIMEOUTは正の値である必要があります")
	}
	if c.ForwardTimeout <= 0 {
		return errors.New("FORWARD_TIMEOUTは正の値である必要があります")
	}
	if c.Audit.Enabled && c.Audit.DBPath == "" {
		return errors.New("監査ログが有効な場合はAUDIT_DB_PATHが必要です")
	}
	return nil
}
