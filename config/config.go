// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	sweepOrphans   = pflag.Bool("sweep-orphans", false, "Runs one orphaned blob sweep on startup")
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers   = []string{"sqlite", "postgres"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SweepOnStart reports whether a one-off orphan sweep was requested
// on the command line.
func SweepOnStart() bool {
	return *sweepOrphans
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("upload.max_size", "upload_max_size")
	v.BindEnv("upload.max_duration", "upload_max_duration")
	v.BindEnv("upload.allowed_types", "upload_allowed_types")
	v.BindEnv("upload.allowed_exts", "upload_allowed_exts")

	v.BindEnv("feed.page_size", "feed_page_size")
	v.BindEnv("feed.session_ttl", "feed_session_ttl")

	v.BindEnv("gc.schedule", "gc_schedule")
	v.BindEnv("gc.grace_period", "gc_grace_period")

	v.BindEnv("aws.access_key", "aws_access_key")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.bucket", "aws_bucket")
	v.BindEnv("aws.public_url", "aws_public_url")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("upload.max_size", 100)
	v.SetDefault("upload.max_duration", 300)
	v.SetDefault("upload.allowed_types", []string{"video/mp4", "video/quicktime", "video/x-m4v"})
	v.SetDefault("upload.allowed_exts", []string{".mp4", ".mov", ".m4v"})

	v.SetDefault("feed.page_size", 3)
	v.SetDefault("feed.session_ttl", "30m")

	v.SetDefault("gc.schedule", "@every 6h")
	v.SetDefault("gc.grace_period", "1h")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDrivers, v.GetString("db.driver")) {
		return errors.New("invalid db driver provided")
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetFloat64("upload.max_duration") <= 0 {
		return errors.New("upload.max_duration must be bigger than 0")
	}

	if len(v.GetStringSlice("upload.allowed_types")) == 0 && len(v.GetStringSlice("upload.allowed_exts")) == 0 {
		return errors.New("no allowed upload formats configured")
	}

	if v.GetInt("feed.page_size") <= 0 {
		return errors.New("feed.page_size must be bigger than 0")
	}

	if v.GetString("aws.access_key") == "" {
		return errors.New("aws access key can't be empty")
	}
	if v.GetString("aws.secret_access_key") == "" {
		return errors.New("aws secret access key can't be empty")
	}
	if v.GetString("aws.bucket") == "" {
		return errors.New("bucket can't be empty")
	}
	if v.GetString("aws.public_url") == "" {
		return errors.New("aws.public_url can't be empty")
	}

	// Stored in MB for convenience, used in bytes everywhere else
	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}
