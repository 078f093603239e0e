package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "itops-backend/docs"
	"itops-backend/internal/activity"
	"itops-backend/internal/catalog"
	"itops-backend/internal/inventory"
	"itops-backend/internal/notify"
	"itops-backend/internal/photography"
	"itops-backend/internal/platform/auth"
	"itops-backend/internal/platform/blob"
	"itops-backend/internal/platform/config"
	"itops-backend/internal/platform/db"
	"itops-backend/internal/platform/guard"
	"itops-backend/internal/repairs"
	"itops-backend/internal/videos"
)

// @title       IT Operations API
// @version     1.0
// @BasePath    /api/v1
// @securityDefinitions.apikey BearerAuth
// @in          header
// @name        Authorization
func main() {
	configPath := pflag.StringP("config", "c", config.DefaultPath, "path to config.yaml")
	migrateLegacy := pflag.Bool("migrate-legacy-activities", false, "backfill status/zone on old activity rows and exit")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	mode := cfg.Mode
	log.Printf("[INFO] mode:%s", mode)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("[ERROR] connect db: %v", err)
	}
	defer conn.Close()
	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	ctx := context.Background()
	if err := db.Migrate(ctx, conn); err != nil {
		log.Fatalf("[ERROR] migrate: %v", err)
	}

	activitySvc := activity.NewService(activity.NewStore(conn))
	if *migrateLegacy {
		rep, err := activitySvc.MigrateLegacy(ctx)
		if err != nil {
			log.Fatalf("[ERROR] legacy activity migration: %v", err)
		}
		log.Printf("[INFO] legacy activity migration: %+v", rep)
		return
	}

	blobs, err := blob.New(cfg.Blob)
	if err != nil {
		log.Fatalf("[ERROR] blob store: %v", err)
	}
	images := blob.Compressor{MaxDimension: cfg.Images.MaxDimension, Quality: cfg.Images.JPEGQuality}

	submitGuard, closeGuard := newGuard(ctx, cfg)
	defer closeGuard()

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		if mode == "release" {
			log.Fatal("[ERROR] auth.jwt_secret (or JWT_SECRET) is required in release mode")
		}
		log.Println("[WARN] auth.jwt_secret not set, using an insecure development secret")
		secret = []byte("dev-only-secret")
	}
	authSvc := auth.NewService(auth.NewStore(conn), secret, cfg.Auth.TokenTTL)
	catalogSvc := catalog.NewService(catalog.NewStore(conn))
	inventorySvc := inventory.NewService(inventory.NewStore(conn), blobs, catalogSvc)
	repairSvc := repairs.NewService(repairs.NewStore(conn), blobs, images)
	photoSvc := photography.NewService(photography.NewStore(conn), authSvc, blobs, images, submitGuard)
	videoSvc := videos.NewService(videos.NewStore(conn), blobs, images)

	dispatcher := notify.NewDispatcher(notify.NewStore(conn), notify.NewHTTPSender(cfg.Notify.Timeout), cfg.Notify)
	sched, err := dispatcher.Start(cfg.Notify.Schedule)
	if err != nil {
		log.Fatalf("[ERROR] notify schedule %q: %v", cfg.Notify.Schedule, err)
	}

	gin.SetMode(gin.ReleaseMode)
	r, external, api := newRouter(cfg)

	r.GET("/healthz", func(c *gin.Context) {
		if err := conn.PingContext(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	// public feed for the school website
	photography.RegisterPublicRoutes(external, photoSvc)

	auth.RegisterPublicRoutes(api, authSvc)

	authed := api.Group("", auth.RequireAuth(secret))
	auth.RegisterRoutes(authed, authSvc)
	catalog.RegisterRoutes(authed, catalogSvc)
	inventory.RegisterRoutes(authed, inventorySvc)
	repairs.RegisterRoutes(authed, repairSvc)
	activity.RegisterRoutes(authed, activitySvc)
	photography.RegisterRoutes(authed, photoSvc)
	videos.RegisterRoutes(authed, videoSvc)

	if mode == "dev" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           gzhttp.GzipHandler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.Server.TLS {
			// certificates live under config/tls/<mode>/
			certFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Cert)
			keyFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Key)
			log.Printf("[INFO] listening on https://%s", cfg.Server.Addr)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Printf("[INFO] listening on http://%s", cfg.Server.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] http shutdown: %v", err)
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		log.Println("[WARN] notify dispatcher did not stop in time")
	}
}

// newGuard connects to Redis when configured. Dev mode falls back to an
// in-process guard, which is only correct for a single instance.
func newGuard(ctx context.Context, cfg *config.Config) (guard.Guard, func()) {
	if cfg.Redis.Addr == "" {
		if cfg.Mode == "release" {
			log.Fatal("[ERROR] redis.addr is required in release mode")
		}
		log.Println("[WARN] redis not configured, using in-memory submission guard")
		return guard.NewMemory(), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("[ERROR] redis ping %s: %v", cfg.Redis.Addr, err)
	}
	log.Printf("[INFO] connected to redis: %s", cfg.Redis.Addr)
	return guard.NewRedis(rdb), func() { _ = rdb.Close() }
}
