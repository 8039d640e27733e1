// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupParams controls where and how logs are written.
type SetupParams struct {
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool
}

// Setup applies params to the standard logrus logger.
func Setup(params SetupParams) {
	setup(logrus.StandardLogger(), params, os.Stdout)
}

func setup(logger *logrus.Logger, params SetupParams, stdout io.Writer) {
	if params.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.SetLevel(GetLevel(params.LogLevel))

	if params.LogFileName == "" {
		logger.SetOutput(stdout)
		logger.Debugln("writing logs only to STDOUT")
		return
	}

	if !strings.HasSuffix(params.LogFileName, ".log") {
		params.LogFileName += ".log"
	}
	if dir := filepath.Dir(params.LogFileName); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.SetOutput(stdout)
			logger.Errorf("create log dir %s: %v, writing to STDOUT", dir, err)
			return
		}
	}

	fileWriter := &lumberjack.Logger{
		Filename:   params.LogFileName,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		LocalTime:  true,
		Compress:   true,
	}

	if params.LogToStdout {
		logger.SetOutput(NewCombinedWriter(stdout, fileWriter))
		logger.Debugln("writing logs to file and STDOUT")
	} else {
		logger.SetOutput(fileWriter)
	}
}

// GetLevel maps a level name to a logrus level. Unknown names map to info.
func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
