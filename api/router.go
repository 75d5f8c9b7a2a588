// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"clipfeed/clip-api/aws"
	"clipfeed/clip-api/db"
	"clipfeed/clip-api/feed"
	"clipfeed/clip-api/middleware"
	"clipfeed/clip-api/upload"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Blobs    upload.BlobStore
	Uploader *upload.Orchestrator
	Sessions *feed.Registry
}

func NewRouter() (*API, error) {
	a := &API{}

	db, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = db

	makeLogger()

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	jwt := middleware.NewJWTMiddleware()
	maxUploadSize := viper.GetInt64("upload.max_size")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// HEAD /api/validate		-> Validates a JWT token
		main.HEAD("/validate", jwt, a.Validate)
	}

	clips := main.Group("/clips")
	{
		// POST /api/clips         	-> Uploads a new clip and stores its record
		clips.POST("", jwt, middleware.BodySizeLimiter(maxUploadSize+(1<<20)), a.ClipUpload)

		// GET /api/clips/upload/progress -> Returns the caller's active upload session
		clips.GET("/upload/progress", jwt, a.ClipProgress)

		// GET /api/clips/:id 		-> Returns one public clip and counts the view
		clips.GET("/:id", a.ClipFetch)
	}

	feedGroup := main.Group("/feed")
	{
		// GET /api/feed 		-> Returns one page of the public feed
		feedGroup.GET("", cacheFor(10), a.FeedFetch)

		// POST /api/feed/sessions 	-> Creates a gesture-navigable feed session
		feedGroup.POST("/sessions", a.FeedSessionCreate)

		// POST /api/feed/sessions/:id/gesture -> Applies one swipe to a session
		feedGroup.POST("/sessions/:id/gesture", middleware.BodySizeLimiter(1<<10), a.FeedSessionGesture)

		// POST /api/feed/sessions/:id/refresh -> Reloads a session from the first page
		feedGroup.POST("/sessions/:id/refresh", a.FeedSessionRefresh)

		// DELETE /api/feed/sessions/:id -> Disposes a session
		feedGroup.DELETE("/sessions/:id", a.FeedSessionDelete)
	}

	s3, err := aws.NewS3()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}

	a.Blobs = s3
	a.Uploader = upload.NewOrchestrator(db, s3)
	a.Sessions = feed.NewRegistry(viper.GetDuration("feed.session_ttl"))

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
