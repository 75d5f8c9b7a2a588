package api

import (
	"net/http"

	"clipfeed/clip-api/feed"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FeedSessionCreate loads the first page and starts a server-held
// session the client can swipe through.
func (a *API) FeedSessionCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	session, err := feed.NewSession(c.Request.Context(), feed.NewPager(a.DB))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":     "Failed to load feed",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create feed session", zap.Error(err))
		return
	}

	a.Sessions.Add(session)

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"state":      session.State(),
	})
}

// FeedSessionGesture applies one swipe sample to the session.
func (a *API) FeedSessionGesture(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	session, ok := a.Sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Session not found",
			"requestID": requestID,
		})
		return
	}

	var gesture feed.Gesture
	if err := c.ShouldBindJSON(&gesture); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid gesture",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, session.Gesture(c.Request.Context(), gesture))
}

// FeedSessionRefresh reloads the session from the first page. Doubles
// as the retry affordance after a failed fetch.
func (a *API) FeedSessionRefresh(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	session, ok := a.Sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Session not found",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, session.Refresh(c.Request.Context()))
}

// FeedSessionDelete disposes the session.
func (a *API) FeedSessionDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	if !a.Sessions.Remove(c.Param("id")) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Session not found",
			"requestID": requestID,
		})
		return
	}

	c.Status(http.StatusNoContent)
}
