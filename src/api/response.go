package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
)

func reply(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func replyCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func replyMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func bindJSON[T any](c *gin.Context) (*T, bool) {
	in := new(T)
	err := c.ShouldBindJSON(in)
	if err != nil {
		fail(c, apperr.Validation(err))
		return nil, false
	}
	return in, true
}

func bindQuery[T any](c *gin.Context) (*T, bool) {
	in := new(T)
	err := c.ShouldBindQuery(in)
	if err != nil {
		fail(c, apperr.Validation(err))
		return nil, false
	}
	return in, true
}

// Writes data or renders the error
func respond(c *gin.Context, data interface{}, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	reply(c, data)
}
