package logger

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

const (
	requestIdKey  = "request-id"
	requestLogKey = "request-log"
)

var apiLogger = NewSublogger("api")

// Middleware assigning a request id and a request scoped logger
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = xid.New().String()
		}
		c.Set(requestIdKey, id)
		c.Header("X-Request-Id", id)
		c.Set(requestLogKey, apiLogger.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}))

		c.Next()

		LOG(c).WithField("status", c.Writer.Status()).Trace("Handled")
	}
}

// Request scoped logger
func LOG(c *gin.Context) *logrus.Entry {
	v, ok := c.Get(requestLogKey)
	if !ok {
		return apiLogger
	}
	return v.(*logrus.Entry)
}

// Logs an error with the status that is going to be returned
func LOGE(c *gin.Context, err error, status int) *logrus.Entry {
	return LOG(c).WithError(err).WithField("status", status)
}

func RequestId(c *gin.Context) string {
	return c.GetString(requestIdKey)
}
