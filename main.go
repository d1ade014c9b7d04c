package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"rentaudit/internal/api"
	"rentaudit/internal/cache"
	"rentaudit/internal/captcha"
	"rentaudit/internal/config"
	"rentaudit/internal/db"
	"rentaudit/internal/email"
	"rentaudit/internal/repository"
	"rentaudit/internal/services"
	"rentaudit/internal/storage"
	"rentaudit/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	if err := db.EnsureIndexes(rootCtx, mongoDb); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Image storage is optional; without a bucket uploads are simply not offered.
	var imageStorage storage.IS3Storage
	if cfg.AwsS3Bucket != "" {
		imageStorage, err = storage.NewS3Storage(rootCtx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Println("WARN: AWS_S3_BUCKET not set, image uploads disabled.")
	}

	// Email: Redis capture under MOCK_SERVICES, otherwise SMTP (or log-only),
	// optionally mirrored to a file.
	var primaryEmailSender email.Sender
	if cfg.MockServices {
		log.Println("MOCK_SERVICES enabled: Using Redis email sender.")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg.SmtpFromAddress)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	emailSender := email.NewCompositeSender(primaryEmailSender)
	if cfg.LogEmailsPath != "" {
		fileSender, err := email.NewFileSender(cfg.LogEmailsPath)
		if err != nil {
			log.Printf("WARN: failed to open LOG_EMAILS file '%s': %v. Proceeding without file logging.", cfg.LogEmailsPath, err)
		} else {
			emailSender.Add(fileSender)
			log.Printf("Emails are also written to '%s'.", cfg.LogEmailsPath)
		}
	}

	// Repositories and services
	listingRepo := repository.NewListingRepository(mongoDb)
	auditRepo := repository.NewAuditLogRepository(mongoDb)
	adminRepo := repository.NewAdminRepository(mongoDb)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	taskQueue := tasks.NewQueue(taskClient)

	publicCache := cache.NewQueryCache(redisClient, "listings:public", cfg.GetCacheTTL)
	txRunner := db.NewTxRunner(mongoClient, cfg.MongoUseTransactions)

	listingService := services.NewListingService(cfg, listingRepo, auditRepo, txRunner, publicCache, taskQueue)
	auditService := services.NewAuditService(cfg, auditRepo, listingRepo)
	adminService := services.NewAdminService(cfg, adminRepo)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := adminService.EnsureBootstrapAdmin(rootCtx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			log.Fatalf("Failed to bootstrap admin account: %v", err)
		}
	}

	taskProcessor := tasks.NewTaskProcessor(cfg, emailSender, imageStorage, auditService)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API (always runs)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("Service API listening on :%s\n", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		fmt.Println("Service API server stopped.")
	}()

	// --- Mode-specific servers ---
	var mainApiSrv *http.Server
	var workers []*asynq.Server
	var scheduler *asynq.Scheduler

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		router := api.SetupRouter(rootCtx, cfg, api.Dependencies{
			Listings: listingService,
			Audit:    auditService,
			Admins:   adminService,
			Storage:  imageStorage,
			Captcha:  captcha.NewTurnstileVerifier(cfg),
		})
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Main API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			fmt.Println("Main API server stopped.")
		}()
	}

	startWorker := func(name string, queues map[string]int) {
		srv, mux := tasks.SetupServer(redisClient, taskProcessor, queues)
		workers = append(workers, srv)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("%s worker starting...\n", name)
			if err := srv.Run(mux); err != nil {
				log.Fatalf("%s worker error: %v", name, err)
			}
			fmt.Printf("%s worker stopped.\n", name)
		}()
	}

	bgMode := func() {
		startWorker("Background", tasks.BackgroundQueues)

		scheduler, err = tasks.NewScheduler(redisClient, cfg)
		if err != nil {
			log.Fatalf("Failed to set up scheduler: %v", err)
		}
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	imgMode := func() {
		startWorker("Image processing", tasks.ImageQueues)
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "img":
		imgMode()
	case "all":
		apiMode()
		bgMode()
		imgMode()
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)
	case <-shutdownChan:
		fmt.Println("\nShutdown requested via Service API. Shutting down gracefully...")
	}
	cancelRoot()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	for _, w := range workers {
		w.Shutdown()
	}

	fmt.Println("Waiting for servers to stop...")
	wg.Wait()
	fmt.Println("Server gracefully stopped")
}
