package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        int
	GinMode     string
	TLSCertFile string
	TLSKeyFile  string

	MasterSecret   string
	TokenPublicKey string
	TokenIssuer    string

	AllowedOrigins     []string
	PingInterval       time.Duration
	PingTimeout        time.Duration
	MaxPayload         int64
	SendQueueSize      int
	HandshakeRateLimit int

	LogLevel  string
	LogFormat string
}

// LoadConfig reads CONFIG_FILE (optional YAML) and then the environment.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return LoadConfigFrom(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("gin_mode", "release")
	v.SetDefault("tls_cert_file", "")
	v.SetDefault("tls_key_file", "")
	v.SetDefault("master_secret", "")
	v.SetDefault("token_public_key", "")
	v.SetDefault("token_issuer", "")
	v.SetDefault("allowed_origins", "")
	v.SetDefault("ping_interval", "25s")
	v.SetDefault("ping_timeout", "20s")
	v.SetDefault("max_payload", 1000000)
	v.SetDefault("send_queue_size", 256)
	v.SetDefault("handshake_rate_limit", 60)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// LoadConfigFrom validates whatever v holds. Keys missing from v fall back to
// the defaults.
func LoadConfigFrom(v *viper.Viper) (Config, error) {
	setDefaults(v)

	cfg := Config{
		Port:               v.GetInt("port"),
		GinMode:            v.GetString("gin_mode"),
		TLSCertFile:        v.GetString("tls_cert_file"),
		TLSKeyFile:         v.GetString("tls_key_file"),
		MasterSecret:       v.GetString("master_secret"),
		TokenPublicKey:     v.GetString("token_public_key"),
		TokenIssuer:        v.GetString("token_issuer"),
		AllowedOrigins:     splitList(v.Get("allowed_origins")),
		PingInterval:       v.GetDuration("ping_interval"),
		PingTimeout:        v.GetDuration("ping_timeout"),
		MaxPayload:         v.GetInt64("max_payload"),
		SendQueueSize:      v.GetInt("send_queue_size"),
		HandshakeRateLimit: v.GetInt("handshake_rate_limit"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT")
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid GIN_MODE %q", c.GinMode)
	}
	if c.MasterSecret == "" && c.TokenPublicKey == "" {
		return fmt.Errorf("MASTER_SECRET or TOKEN_PUBLIC_KEY is required")
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("invalid PING_INTERVAL")
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("invalid PING_TIMEOUT")
	}
	if c.MaxPayload <= 0 {
		return fmt.Errorf("invalid MAX_PAYLOAD")
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("invalid SEND_QUEUE_SIZE")
	}
	if c.HandshakeRateLimit < 0 {
		return fmt.Errorf("invalid HANDSHAKE_RATE_LIMIT")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// splitList accepts both a YAML sequence and a comma separated env string.
func splitList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	case string:
		parts = strings.Split(val, ",")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
