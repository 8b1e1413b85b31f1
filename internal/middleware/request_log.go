package middleware

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// 1リクエスト1行
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
				"ip":         v.RemoteIP,
			})
			if v.Status >= 500 {
				entry.Warn("request")
			} else {
				entry.Info("request")
			}
			return nil
		},
	})
}

type HTTPObserver interface {
	ObserveHTTP(method, path, status string, seconds float64)
}

// pathはルートのパターン（/orders/:id）でまとめる
func Metrics(obs HTTPObserver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			obs.ObserveHTTP(c.Request().Method, path, strconv.Itoa(c.Response().Status), time.Since(start).Seconds())
			return nil
		}
	}
}

const CtxLoggerKey = "logger" // logrus.FieldLogger

// request_id付きのloggerをcontextに入れる（RequestIDの後に置く）
func ContextLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(CtxLoggerKey, log.WithField("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			return next(c)
		}
	}
}

func LoggerFrom(c echo.Context) logrus.FieldLogger {
	if l, ok := c.Get(CtxLoggerKey).(logrus.FieldLogger); ok {
		return l
	}
	return logrus.StandardLogger()
}
