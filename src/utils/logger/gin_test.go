package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}

type MiddlewareTestSuite struct {
	suite.Suite
	router *gin.Engine
}

func (s *MiddlewareTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.router.Use(Middleware())
	s.router.GET("/ping", func(c *gin.Context) {
		LOG(c).Info("Ping")
		c.String(http.StatusOK, RequestId(c))
	})
}

func (s *MiddlewareTestSuite) TestPackageLoggerIsReady() {
	require.NotNil(s.T(), logger)
	require.NotNil(s.T(), apiLogger)
	require.Equal(s.T(), "market.api", apiLogger.Data["module"])
}

func (s *MiddlewareTestSuite) TestAssignsRequestId() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(s.T(), http.StatusOK, w.Code)
	id := w.Header().Get("X-Request-Id")
	require.NotEmpty(s.T(), id)
	require.Equal(s.T(), id, w.Body.String())
}

func (s *MiddlewareTestSuite) TestKeepsIncomingRequestId() {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(s.T(), "abc", w.Header().Get("X-Request-Id"))
	require.Equal(s.T(), "abc", w.Body.String())
}

func (s *MiddlewareTestSuite) TestLogOutsideRequest() {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Equal(s.T(), apiLogger, LOG(c))
}
