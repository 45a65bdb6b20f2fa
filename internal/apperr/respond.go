package apperr

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Abort writes the flat {"error": msg} payload for err and stops the chain.
// Internal errors are logged with their cause and surfaced as a generic 500;
// expected failures (validation, conflict, etc.) are logged at debug only.
func Abort(c *gin.Context, log *zap.Logger, err error) {
	status := HTTPStatus(err)
	if KindOf(err) == KindInternal {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	} else if log != nil {
		log.Debug("request rejected",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.String("reason", Message(err)))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": Message(err)})
}
