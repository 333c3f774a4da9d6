package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roboticeyes/arpreview/auth"
	"github.com/roboticeyes/arpreview/config"
	"github.com/roboticeyes/arpreview/convert"
	"github.com/roboticeyes/arpreview/event"
	"github.com/roboticeyes/arpreview/server"
)

var log = event.Log

func main() {
	configFile := flag.String("config", "", "JSON configuration file")
	listen := flag.String("listen", "", "listen address, overrides the configuration")
	converterURL := flag.String("converter", "", "conversion endpoint, overrides the configuration")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal("Cannot load configuration: ", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *converterURL != "" {
		cfg.Converter.URL = *converterURL
	}
	cfg.Debug = cfg.Debug || *debug

	event.ConfigureLogging(cfg.Debug, cfg.LogJSON)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	keys := auth.StaticKeys("")
	if cfg.VaultFile != "" {
		keys, err = auth.LoadKeys(cfg.VaultFile, cfg.VaultPollInterval())
		if err != nil {
			log.Fatal("Cannot load vault: ", err)
		}
		defer keys.Close()
	}

	srv := server.New(cfg, convert.NewClient(cfg.Converter), keys)
	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		log.WithFields(event.Fields{
			"listen":    cfg.Listen,
			"converter": cfg.Converter.URL,
			"auth":      keys.Enabled(),
		}).Info("Starting AR preview service")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down ...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("Shutdown error: ", err)
	}
}
