package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// devはテキスト、それ以外はJSONで出す
func New(level string, env string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.InfoLevel
	}
	l.SetLevel(lv)

	if env == "dev" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}
