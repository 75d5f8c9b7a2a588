package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"clipfeed/clip-api/model"
	"clipfeed/clip-api/upload"
	"clipfeed/clip-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) ClipUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request",
			"requestID": requestID,
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to parse multipart form", zap.Error(err))
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	fh := files[0]

	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to open uploaded file", zap.Error(err))
		return
	}
	defer f.Close()

	// ffprobe and the blob uploads both need the bytes on disk
	temp, err := os.CreateTemp("", "upload-*.mp4")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create temporary file", zap.Error(err))
		return
	}
	defer os.Remove(temp.Name())
	defer temp.Close()

	if _, err := io.Copy(temp, f); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to copy data to temporary file", zap.Error(err))
		return
	}

	res := validators.File(c.Request.Context(), &validators.Candidate{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Path:        temp.Name(),
	})
	if !res.OK {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"errors":    res.Errors,
			"requestID": requestID,
		})
		return
	}

	visibility := model.Visibility(c.DefaultPostForm("visibility", string(model.VisibilityPublic)))
	if !visibility.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid visibility",
			"requestID": requestID,
		})
		return
	}

	asset, err := a.Uploader.Do(c.Request.Context(), userID, temp.Name(), upload.Options{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Visibility:  visibility,
		Duration:    res.Duration,
		Size:        fh.Size,
	})
	if err != nil {
		if errors.Is(err, upload.ErrNotAuthenticated) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Not signed in",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":     "Upload failed",
			"requestID": requestID,
		})

		zap.L().Error("Upload pipeline failed", zap.Error(err), zap.String("userID", userID))
		return
	}

	c.JSON(http.StatusCreated, asset)
}
