package api

import (
	"errors"
	"net/http"

	"clipfeed/clip-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClipFetch returns one public clip. Private clips report not-found
// instead of forbidden so their existence doesn't leak.
func (a *API) ClipFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	clipID := c.Param("id")
	if clipID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No clip ID provided",
			"requestID": requestID,
		})
		return
	}

	var clip model.VideoAsset

	err := a.DB.
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ? AND visibility = ?", clipID, model.VisibilityPublic).
		First(&clip).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Clip not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch clip from db", zap.Error(err))
		return
	}

	// Best effort, a lost view isn't worth failing the request over
	err = a.DB.
		Model(model.VideoAsset{}).
		Where("id = ?", clipID).
		Update("views", gorm.Expr("views + ?", 1)).
		Error
	if err != nil {
		zap.L().Error("Failed to increment view count", zap.String("id", clipID), zap.Error(err))
	} else {
		clip.Views++
	}

	c.JSON(http.StatusOK, clip)
}
