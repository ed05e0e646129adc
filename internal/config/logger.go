package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogger points the standard logrus logger at stdout and the daily
// log file. The returned file must be closed by the caller.
func (c *Config) ConfigureLogger() (*os.File, error) {
	level := log.InfoLevel
	if c.IsDebugMode() {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if err := os.MkdirAll(c.Log.Directory, 0755); err != nil {
		log.SetOutput(os.Stdout)
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(c.Log.Directory, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stdout)
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	return file, nil
}
