package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/reportlog/internal/app"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "", "path to the config file (default /config/config.yaml, ./config/config.yaml when LOCAL=true)")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	application := app.New(app.Options{ConfigPath: *configPath, LogLevel: level}) // Initialize the application
	wait := application.Start()                                                    // Start the application and wait for the termination signal
	<-wait                                                                         // Wait for the application to receive a termination signal
	application.Stop(ctx)                                                          // Stop the application gracefully
}
