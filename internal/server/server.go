package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// 共通ミドルウェアを付けたechoを作る
func New(log logrus.FieldLogger, obs middleware.HTTPObserver) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.NewRequestValidator()

	e.Use(middleware.RequestID())
	e.Use(middleware.ContextLogger(log))
	e.Use(middleware.RequestLogger(log))
	if obs != nil {
		e.Use(middleware.Metrics(obs))
	}
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("10M"))

	return e
}

// ctxが終わるまで待ち、処理中のリクエストを待って止める
func Run(ctx context.Context, e *echo.Echo, addr string, log logrus.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http server started")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("http server shutting down")
	return e.Shutdown(shutdownCtx)
}

func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] != ':' {
		return ":" + port
	}
	return port
}
