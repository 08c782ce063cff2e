package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gamedoc/config"
	"gamedoc/config/database"
	"gamedoc/internal/access"
	docrepo "gamedoc/internal/document/repository"
	gameservice "gamedoc/internal/game/service"
	"gamedoc/pkg/logger"
	"gamedoc/pkg/objectstore"
	"gamedoc/router"
	"gamedoc/socket"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Sugar.Errorf("Server stopped: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// The hub keeps running until shutdown has drained HTTP, so its final
	// flush sees every edit.
	hubCtx, cancelHub := context.WithCancel(context.Background())
	docs := docrepo.NewDocumentRepository(db)
	hub := socket.NewHub(docs, access.NewResolver(docs), cfg.SaveInterval)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(hubCtx)
	}()
	go func() {
		defer wg.Done()
		hub.SaveWorker(hubCtx)
	}()
	stopHub := func() {
		cancelHub()
		wg.Wait()
	}

	var storage gameservice.Presigner
	store, err := objectstore.New(ctx, objectstore.Options{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		URLTTL:    cfg.UploadURLTTL,
	})
	switch {
	case errors.Is(err, objectstore.ErrDisabled):
		logger.Sugar.Info("S3_BUCKET not set, game image uploads are disabled")
	case err != nil:
		stopHub()
		return err
	default:
		storage = store
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(router.Deps{DB: db, Hub: hub, Config: cfg, Storage: storage}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("Go Backend listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stopHub()
		return err
	case <-ctx.Done():
	}

	logger.Sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Warnf("HTTP shutdown: %v", err)
	}
	stopHub()
	return nil
}
