package gateway

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionKey = "session"

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if sess, ok := c.Get(sessionKey); ok {
			fields = append(fields, zap.String("user_id", sess.(auth.Session).UserID))
		}
		logger.Info("HTTP request", fields...)
	}
}

// authMiddleware verifies the bearer token and stores the caller's session.
func (g *Gateway) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" || token == header {
			abortWithError(c, apperr.Unauthorized("Not authorized, no token"))
			return
		}

		sess, err := g.tokens.Verify(token)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session(c).IsAdmin() {
			abortWithError(c, apperr.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// session returns the authenticated caller, or the zero Session on public routes.
func session(c *gin.Context) auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(auth.Session); ok {
			return sess
		}
	}
	return auth.Session{}
}

// errorBody renders err as {"message": ...}; stock errors also report what is left.
func errorBody(err error) (int, gin.H) {
	kind := apperr.KindOf(err)
	body := gin.H{"message": err.Error()}

	var stock *apperr.StockError
	if errors.As(err, &stock) {
		body["available"] = stock.Available
		body["productId"] = stock.ProductID
	}
	if kind == apperr.KindInternal {
		body["message"] = "Server error"
	}
	return kind.HTTPStatus(), body
}

func (g *Gateway) respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		g.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.AbortWithStatusJSON(status, body)
}

func bindError(err error) error {
	return apperr.Wrap(apperr.KindInvalidArgument, "Invalid request body", err)
}
