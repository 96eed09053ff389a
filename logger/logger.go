package logger

import (
	"github.com/sirupsen/logrus"
)

// Logger is a global variable that represents the logger instance.
var Logger = logrus.New()

// Init initializes the logger formatter and level.
func Init(level string) {
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Logger.SetLevel(parsed)
}
