package routes

import (
	"github.com/gin-gonic/gin"

	"eventhub/apperr"
	"eventhub/logger"
)

// respondError writes the classified error. Internal causes stay in the log.
func respondError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	if code == apperr.CodeInternal {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.Request.URL.Path, "request_id", c.GetString("requestId"), "err", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(code), gin.H{
		"message": apperr.PublicMessage(err),
		"code":    code,
	})
}
