package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/zpicker/internal/config"
)

// InitLogger sets the log level and format based on the provided configuration
func InitLogger(cfg *config.Config) {
	SetLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
}

// InitFromEnv initializes logging from environment variables
func InitFromEnv() {
	SetLogLevel(os.Getenv("LOG_LEVEL"))
}

// SetLogLevel applies a level name. Unknown or empty names fall back to error.
func SetLogLevel(logLevel string) {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(logLevel)))
	if err != nil {
		level = log.ErrorLevel
	}
	log.SetLevel(level)
}

func init() {
	InitFromEnv()
}
