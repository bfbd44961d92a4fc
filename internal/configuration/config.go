package configuration

import "os"

type Config struct {
	Remote     RemoteConfig
	Server     ServerConfig
	NATSURL    string
	Extensions string
	ReadOnly   bool
}

type RemoteConfig struct {
	// BaseURL of the upstream attachment service.
	BaseURL string
	// SessionToken is the fallback token used when a request carries none.
	SessionToken string
}

type ServerConfig struct {
	Port string
}

func Load() *Config {
	return &Config{
		Remote: RemoteConfig{
			BaseURL:      getEnv("REMOTE_BASE_URL", "http://localhost:9090"),
			SessionToken: getEnv("REMOTE_SESSION_TOKEN", ""),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		NATSURL:    getEnv("NATS_URL", "nats://localhost:4222"),
		Extensions: getEnv("ALLOWED_EXTENSIONS", ""),
		ReadOnly:   getEnv("READ_ONLY", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
