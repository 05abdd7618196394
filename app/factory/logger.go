package factory

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

func NewModuleLogger(module string) logrus.FieldLogger {
	return logrus.WithField("module", module)
}

func LoggerWithContext(logger logrus.FieldLogger, c echo.Context) logrus.FieldLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if c == nil {
		return logger
	}

	fields := logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}
	requestID := c.Response().Header().Get(requestIDHeader)
	if requestID == "" {
		requestID = c.Request().Header.Get(requestIDHeader)
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return logger.WithFields(fields)
}
