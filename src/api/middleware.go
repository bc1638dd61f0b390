package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	. "github.com/warp-contracts/marketplace/src/utils/logger"
)

const claimsKey = "claims"

// Renders the last error added with c.Error. Handlers never write errors themselves.
func (self *Server) errorHandler(c *gin.Context) {
	if self.monitor != nil {
		self.monitor.GetReport().Api.State.Requests.Inc()
	}

	c.Next()

	last := c.Errors.Last()
	if last == nil {
		return
	}
	self.render(c, last.Err)
}

func (self *Server) render(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
		appErr, ok = apperr.New(http.StatusGatewayTimeout, "REQUEST_TIMEOUT", "Request timed out").WithCause(err), true
	}
	if !ok {
		appErr = apperr.New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error").WithCause(err)
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		LOGE(c, err, appErr.StatusCode).WithField("code", appErr.Code).Error("Request failed")
		if self.monitor != nil {
			self.monitor.GetReport().Api.Errors.ServerErrors.Inc()
		}
	} else {
		LOGE(c, err, appErr.StatusCode).WithField("code", appErr.Code).Debug("Request rejected")
		if self.monitor != nil {
			self.monitor.GetReport().Api.Errors.ClientErrors.Inc()
		}
	}

	if c.Writer.Written() {
		return
	}

	body := gin.H{
		"message": appErr.Message,
		"code":    appErr.Code,
	}
	if self.Config.IsDevelopment() {
		body["stack"] = appErr.Stack()
	}

	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"success": false,
		"message": appErr.Message,
		"error":   body,
	})
}

func (self *Server) onPanic(c *gin.Context, recovered interface{}) {
	self.render(c, apperr.New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error").
		WithCause(fmt.Errorf("panic: %v", recovered)))
}

func (self *Server) onNoRoute(c *gin.Context) {
	_ = c.Error(apperr.New(http.StatusNotFound, "ROUTE_NOT_FOUND", fmt.Sprintf("Route %s %s not found", c.Request.Method, c.Request.URL.Path)))
}

// Cancels the request context after API.RequestTimeout
func (self *Server) timeout(c *gin.Context) {
	if self.Config.API.RequestTimeout <= 0 {
		c.Next()
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), self.Config.API.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// Requires a valid bearer token
func (self *Server) authHandler(c *gin.Context) {
	header := c.GetHeader("Authorization")
	signed, found := strings.CutPrefix(header, "Bearer ")
	if !found || signed == "" {
		_ = c.Error(apperr.Unauthorized("Missing bearer token"))
		c.Abort()
		return
	}

	claims, err := self.tokens.Verify(strings.TrimSpace(signed))
	if err != nil {
		_ = c.Error(apperr.Unauthorized("Invalid token").WithCause(err))
		c.Abort()
		return
	}

	c.Set(claimsKey, claims)
	LOG(c).WithField("user_id", claims.UserID).Trace("Authenticated")
	c.Next()
}

// Requires role=admin, runs after authHandler
func (self *Server) adminHandler(c *gin.Context) {
	if !claims(c).IsAdmin() {
		_ = c.Error(apperr.Forbidden("Admin role required"))
		c.Abort()
		return
	}
	c.Next()
}

// Identity of an authenticated request
func claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return &auth.Claims{}
	}
	return v.(*auth.Claims)
}

// Caller acts on behalf of the user, admins act for anyone
func actingAs(c *gin.Context, userId string) error {
	caller := claims(c)
	if caller.IsAdmin() || caller.UserID == userId {
		return nil
	}
	return apperr.Forbidden("Can't act on behalf of another user")
}
