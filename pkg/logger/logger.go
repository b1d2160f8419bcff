package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log — глобальный логгер приложения. Все пакеты пишут через него.
var Log *logrus.Logger

// Init настраивает глобальный логгер. Вызывается один раз при старте
// процесса (из main).
//
// Управление через окружение:
//
//	LOG_LEVEL  — debug | info | warn | error (по умолчанию info)
//	LOG_FORMAT — json для продакшена и сбора логов, иначе цветной текст
func Init() {
	Log = logrus.New()

	level, err := logrus.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	Log.SetOutput(os.Stdout)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func init() {
	// Пакеты с тестами дергают logger.Log до main. Дефолтная
	// инициализация гарантирует ненулевой логгер при любом порядке
	// импорта.
	if Log == nil {
		Init()
	}
}
