package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClipProgress returns the state machine snapshot of the caller's most
// recent upload.
func (a *API) ClipProgress(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	snap, ok := a.Uploader.Progress(userID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "No upload in progress",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, snap)
}
