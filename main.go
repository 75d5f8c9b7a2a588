package main

import (
	"context"
	"fmt"

	"clipfeed/clip-api/api"
	"clipfeed/clip-api/config"
	"clipfeed/clip-api/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	a, err := api.NewRouter()
	if err != nil {
		panic(err)
	}

	if config.SweepOnStart() {
		if err := service.SweepOrphans(context.Background(), a.DB, a.Blobs); err != nil {
			zap.L().Error("Startup orphan sweep failed", zap.Error(err))
		}
	}

	if _, err := service.AttachOrphanSweep(a.DB, a.Blobs); err != nil {
		panic(err)
	}

	zap.L().Info("Server starting")

	err = a.Router.Run(fmt.Sprintf(":%d", viper.GetInt("host.port")))
	if err != nil {
		panic(err)
	}
}
