package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Enabled    bool   // Включено ли логирование
	Level      string // DEBUG, INFO, WARN, ERROR
	LogsDir    string // Директория для логов
	SavingDays uint   // Сколько дней хранить логи
}

// Logger - тонкая обертка над logrus с префиксом компонента.
// Поля передаются парами ключ-значение, как в остальном коде сервиса.
type Logger struct {
	config *Config
	log    *logrus.Logger
	file   *os.File
	prefix string
}

func NewLogger(cfg *Config, prefix string) *Logger {
	l := &Logger{
		config: cfg,
		prefix: prefix,
	}

	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if !cfg.Enabled {
		base.SetOutput(io.Discard)
	} else if cfg.LogsDir != "" {
		if err := os.MkdirAll(cfg.LogsDir, 0755); err == nil {
			logFile := filepath.Join(cfg.LogsDir, time.Now().Format("2006-01-02")+".log")
			if file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				l.file = file
				base.SetOutput(io.MultiWriter(os.Stdout, file))
			}
		}
	}

	l.log = base

	if cfg.Enabled && cfg.SavingDays > 0 {
		go l.cleanOldLogs()
	}

	return l
}

func (l *Logger) WithPrefix(prefix string) *Logger {
	newPrefix := l.prefix
	if newPrefix != "" {
		newPrefix += " "
	}
	newPrefix += "[" + prefix + "]"

	return &Logger{
		config: l.config,
		log:    l.log,
		file:   l.file,
		prefix: newPrefix,
	}
}

func (l *Logger) cleanOldLogs() {
	for range time.Tick(24 * time.Hour) {
		files, err := os.ReadDir(l.config.LogsDir)
		if err != nil {
			l.Error("Failed to read logs directory", "error", err)
			continue
		}

		cutoff := time.Now().AddDate(0, 0, int(-l.config.SavingDays))
		for _, file := range files {
			if info, err := file.Info(); err == nil && !file.IsDir() && info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(l.config.LogsDir, file.Name())); err != nil {
					l.Error("Failed to delete old log file", "file", file.Name(), "error", err)
				}
			}
		}
	}
}

func (l *Logger) entry(fields ...interface{}) *logrus.Entry {
	logFields := logrus.Fields{}
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if i+1 < len(fields) {
			logFields[key] = fields[i+1]
		} else {
			logFields[key] = "?"
		}
	}
	return l.log.WithFields(logFields)
}

func (l *Logger) msg(m string) string {
	if l.prefix == "" {
		return m
	}
	return l.prefix + " " + m
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.entry(fields...).Debug(l.msg(msg)) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.entry(fields...).Info(l.msg(msg)) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.entry(fields...).Warn(l.msg(msg)) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.entry(fields...).Error(l.msg(msg)) }

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
