package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TRAVELBOOK_TEST_SECRET", "0123456789abcdef-secret")

	yamlContent := `
app:
  name: "travelbook-test"
database:
  path: "test.db"
auth:
  jwt_secret: "${TRAVELBOOK_TEST_SECRET}"
  token_ttl: 2h
cart:
  max_items: 5
kafka:
  brokers: ["localhost:9092"]
  topic: "travel.events"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Auth.JWTSecret != "0123456789abcdef-secret" {
		t.Errorf("expected expanded jwt secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("expected token ttl 2h, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Cart.MaxItems != 5 {
		t.Errorf("expected cart max items 5, got %d", cfg.Cart.MaxItems)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("expected default driver sqlite3, got %s", cfg.Database.Driver)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	secret := "0123456789abcdef"
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid sqlite config",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite3", Path: "path"},
				Auth:     AuthConfig{JWTSecret: secret},
			},
			wantErr: false,
		},
		{
			name: "valid postgres config",
			cfg: Config{
				Database: DatabaseConfig{Driver: "postgres", Postgres: PostgresConfig{Host: "db", DBName: "travel"}},
				Auth:     AuthConfig{JWTSecret: secret},
			},
			wantErr: false,
		},
		{
			name: "missing sqlite path",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite3"},
				Auth:     AuthConfig{JWTSecret: secret},
			},
			wantErr: true,
		},
		{
			name: "unknown driver",
			cfg: Config{
				Database: DatabaseConfig{Driver: "mysql", Path: "x"},
				Auth:     AuthConfig{JWTSecret: secret},
			},
			wantErr: true,
		},
		{
			name: "missing secret",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite3", Path: "path"},
			},
			wantErr: true,
		},
		{
			name: "short secret",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite3", Path: "path"},
				Auth:     AuthConfig{JWTSecret: "short"},
			},
			wantErr: true,
		},
		{
			name: "telegram without chat",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite3", Path: "path"},
				Auth:     AuthConfig{JWTSecret: secret},
				Telegram: TelegramConfig{BotToken: "token"},
			},
			wantErr: true,
		},
		{
			name: "kafka without topic",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite3", Path: "path"},
				Auth:     AuthConfig{JWTSecret: secret},
				Kafka:    KafkaConfig{Brokers: []string{"localhost:9092"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 9000 {
		t.Errorf("expected default HTTP port 9000, got %d", cfg.API.HTTP.Port)
	}
	if cfg.API.GRPC.Port != 9001 {
		t.Errorf("expected default gRPC port 9001, got %d", cfg.API.GRPC.Port)
	}
	if cfg.Cart.TTL != 72*time.Hour {
		t.Errorf("expected default cart ttl 72h, got %s", cfg.Cart.TTL)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected default token ttl 24h, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("expected default driver sqlite3, got %s", cfg.Database.Driver)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "travel", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=travel sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
