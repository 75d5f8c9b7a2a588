package api

import (
	"errors"
	"net/http"

	"clipfeed/clip-api/feed"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FeedFetch returns one page of the public feed. Stateless: each
// request gets its own pager, continuation happens through the opaque
// cursor the client passes back.
func (a *API) FeedFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	page, err := feed.NewPager(a.DB).LoadPage(c.Request.Context(), c.Query("cursor"))
	if err != nil {
		if errors.Is(err, feed.ErrBadCursor) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid cursor",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":     "Failed to load feed",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load feed page", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, page)
}
