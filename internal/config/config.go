package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig содержит конфигурацию приложения
type AppConfig struct {
	ServerPort  string
	KafkaBroker string
	KafkaTopic  string
	GinMode     string
	Database    DatabaseConfig
	Logging     LoggerConfig
	Visa        VisaConfig
	Yak         YakConfig
	Scan        ScanConfig
	Peak        PeakConfig
}

// LoggerConfig содержит настройки логгера
type LoggerConfig struct {
	Enable     bool
	LogsDir    string
	Level      string
	SavingDays int
}

// DatabaseConfig содержит конфигурацию для подключения к базе данных
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
}

// VisaConfig содержит настройки транспорта к прибору (SCPI raw socket)
type VisaConfig struct {
	Address      string        // IP:PORT, стандартный порт 5025
	Timeout      time.Duration // таймаут одного обмена запрос/ответ
	CommandDelay time.Duration // пауза между командами, прибор не умеет pipelining
}

// YakConfig содержит настройки транслятора команд
type YakConfig struct {
	CommandsPath   string        // путь к CSV-таблице команд
	MaxRetries     int           // повторов при таймауте транспорта
	RetryBackoff   time.Duration // базовая задержка повторов
	BackoffFactor  float64       // множитель экспоненциального роста задержки
	FallbackModel  string        // модель при недоступном *IDN? (для офлайн-режима)
}

// ScanConfig содержит настройки оркестратора сканирования
type ScanConfig struct {
	OutputDir      string
	PollInterval   time.Duration // период опроса трассы воркером захвата
	DwellSlack     time.Duration // запас сверх dwell на завершение сегмента
	StitchPolicy   string        // first / last / max
	AverageTraces  bool          // усреднять повторные чтения внутри сегмента
	StabilityDelta float64       // дБ; критерий стабильности пика
	StabilityCount int           // сколько опросов подряд пик должен быть стабилен
}

// PeakConfig содержит настройки фонового публикатора пика
type PeakConfig struct {
	Enable   bool
	Interval time.Duration
}

// LoadConfiguration загружает конфигурацию из .env файла или переменных окружения
func LoadConfiguration() (*AppConfig, error) {
	_ = godotenv.Load()

	config := &AppConfig{
		ServerPort:  getEnv("APP_PORT", "8082"),
		KafkaBroker: getEnv("KAFKA_BROKER", ""),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "spectrum_data"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Username: getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "root"),
			DBName:   getEnv("DB_NAME", "spectrum_db"),
		},
		Logging: LoggerConfig{
			Enable:     getEnvAsBool("LOGGER_ENABLE", true),
			LogsDir:    getEnv("LOGGER_LOGS_DIR", "./logs"),
			Level:      getEnv("LOGGER_LOG_LEVEL", "DEBUG"),
			SavingDays: getEnvAsInt("LOGGER_SAVING_DAYS", 7),
		},
		Visa: VisaConfig{
			Address:      getEnv("VISA_ADDRESS", "localhost:5025"),
			Timeout:      getEnvAsDuration("VISA_TIMEOUT_MS", 2000),
			CommandDelay: getEnvAsDuration("VISA_COMMAND_DELAY_MS", 50),
		},
		Yak: YakConfig{
			CommandsPath:  getEnv("YAK_COMMANDS_PATH", "./configs/yak_commands.csv"),
			MaxRetries:    getEnvAsInt("YAK_MAX_RETRIES", 3),
			RetryBackoff:  getEnvAsDuration("YAK_RETRY_BACKOFF_MS", 100),
			BackoffFactor: getEnvAsFloat("YAK_BACKOFF_FACTOR", 2.0),
			FallbackModel: getEnv("YAK_FALLBACK_MODEL", "*"),
		},
		Scan: ScanConfig{
			OutputDir:      getEnv("SCAN_OUTPUT_DIR", "./scans"),
			PollInterval:   getEnvAsDuration("SCAN_POLL_INTERVAL_MS", 100),
			DwellSlack:     getEnvAsDuration("SCAN_DWELL_SLACK_MS", 500),
			StitchPolicy:   getEnv("SCAN_STITCH_POLICY", "last"),
			AverageTraces:  getEnvAsBool("SCAN_AVERAGE_TRACES", true),
			StabilityDelta: getEnvAsFloat("SCAN_STABILITY_DELTA_DB", 0.1),
			StabilityCount: getEnvAsInt("SCAN_STABILITY_COUNT", 3),
		},
		Peak: PeakConfig{
			Enable:   getEnvAsBool("PEAK_WORKER_ENABLE", true),
			Interval: getEnvAsDuration("PEAK_WORKER_INTERVAL_MS", 1000),
		},
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, defaultValue int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	val, _ := strconv.ParseBool(value)
	return val
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration читает значение в миллисекундах
func getEnvAsDuration(key string, defaultMs int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultMs)) * time.Millisecond
}
