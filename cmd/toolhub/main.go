package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	commonlog "toolhub/server/common/log"
	toolapp "toolhub/server/toolhub/app"
)

func main() {
	cfg, err := toolapp.LoadConfig()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	server, err := toolapp.NewServer(cfg)
	if err != nil {
		log.Fatalf("initialize toolhub server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		commonlog.Infof("start toolhub http server on :%s", cfg.Port)
		if err := server.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("run toolhub http server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Errorf("shutdown toolhub server gracefully: %v", err)
	}
}
