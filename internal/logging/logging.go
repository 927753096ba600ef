package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

func Init() {
	level := logrus.WarnLevel // default: quiet enough for interactive use

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = logrus.DebugLevel
		case "info":
			level = logrus.InfoLevel
		case "warn", "warning":
			level = logrus.WarnLevel
		case "error", "production", "prod":
			level = logrus.ErrorLevel
		}
	}

	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
