package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/onkernel/autorun/lib/bootconfig"
)

type Config struct {
	// Set from command line flags
	BlockDevice string
	MountPath   string
	ConfigPath  string
	Strict      bool

	LogLevel      string
	LogFormat     string
	AppLogDir     string
	AppLogMaxSize string

	ShellPath   string
	MountBin    string
	UmountBin   string
	MountFSType string

	OtelEnabled           bool
	OtelEndpoint          string
	OtelServiceName       string
	OtelServiceInstanceID string
	OtelInsecure          bool
	Version               string
	Env                   string
}

// Load loads configuration from environment variables
// Automatically loads .env file if present
func Load() *Config {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	cfg := &Config{
		ConfigPath: bootconfig.DefaultFileName,

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		AppLogDir:     getEnv("APP_LOG_DIR", ""),
		AppLogMaxSize: getEnv("APP_LOG_MAX_SIZE", "10MB"),

		ShellPath:   getEnv("SHELL_PATH", "/bin/sh"),
		MountBin:    getEnv("MOUNT_BIN", "/bin/mount"),
		UmountBin:   getEnv("UMOUNT_BIN", "/bin/umount"),
		MountFSType: getEnv("MOUNT_FSTYPE", "auto"),

		OtelEnabled:           getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:          getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName:       getEnv("OTEL_SERVICE_NAME", "autorun"),
		OtelServiceInstanceID: getEnv("OTEL_SERVICE_INSTANCE_ID", ""),
		OtelInsecure:          getEnvBool("OTEL_INSECURE", true),
		Version:               getEnv("VERSION", "dev"),
		Env:                   getEnv("ENV", "unset"),
	}

	return cfg
}

// AppLogMaxBytes parses AppLogMaxSize.
func (c *Config) AppLogMaxBytes() (int64, error) {
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(c.AppLogMaxSize)); err != nil {
		return 0, fmt.Errorf("invalid APP_LOG_MAX_SIZE %q: %w", c.AppLogMaxSize, err)
	}
	return int64(size.Bytes()), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
