package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"tourrag/config"
)

// InitLogger builds the console logger used by the CLI and HTTP server.
func InitLogger(cfg *config.Config) arbor.ILogger {
	return arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		TextOutput:       true,
		DisableTimestamp: false,
	}).WithLevelFromString(cfg.Logging.Level)
}

// InitFileLogger logs to dir/.rag/<name>.log only. Used when stdout carries a
// protocol stream.
func InitFileLogger(cfg *config.Config, dir, name string) arbor.ILogger {
	logger := arbor.NewLogger()

	logsDir := filepath.Join(dir, ".rag")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to create logs directory: %v\n", err)
		return arbor.NewNoOpLogger()
	}

	return logger.WithFileWriter(models.WriterConfiguration{
		Type:             models.LogWriterTypeFile,
		FileName:         filepath.Join(logsDir, name+".log"),
		TimeFormat:       "15:04:05",
		MaxSize:          10 * 1024 * 1024,
		MaxBackups:       3,
		TextOutput:       true,
		DisableTimestamp: false,
	}).WithLevelFromString(cfg.Logging.Level)
}
