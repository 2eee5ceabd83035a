package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"report-desk/cache"
	"report-desk/config"
	"report-desk/models"
	"report-desk/services"
	"report-desk/storage"
)

var (
	articlesSubmittedCounter prometheus.Counter
	statusTransitionsCounter *prometheus.CounterVec
	listingCacheCounter      *prometheus.CounterVec
	articlesByStatusGauge    *prometheus.GaugeVec
)

func init() {
	articlesSubmittedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_submitted_total",
			Help: "Total number of articles submitted for review.",
		},
	)
	statusTransitionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "article_status_transitions_total",
			Help: "Approval status transitions by source and target status.",
		},
		[]string{"from", "to"},
	)
	listingCacheCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_cache_lookups_total",
			Help: "Status listing cache lookups by result.",
		},
		[]string{"result"},
	)
	articlesByStatusGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "articles_by_status",
			Help: "Number of articles per approval status.",
		},
		[]string{"status"},
	)
	prometheus.MustRegister(articlesSubmittedCounter, statusTransitionsCounter, listingCacheCounter, articlesByStatusGauge)
}

func observeCacheLookup(hit bool) {
	if hit {
		listingCacheCounter.WithLabelValues("hit").Inc()
		return
	}
	listingCacheCounter.WithLabelValues("miss").Inc()
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Article{}, &models.Comment{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Seeding
	seedDefaultRoles(db, logging)
	seedBootstrapAdmin(db, cfg, logging)

	ctx := context.Background()
	store, err := newCacheStore(ctx, cfg)
	if err != nil {
		logging.Fatal("Cache setup failed", zap.Error(err))
	}
	logging.Info("Listing cache ready", zap.String("driver", cfg.CacheDriver), zap.Duration("ttl", cfg.CacheTTL))

	imageStore, err := newImageStore(ctx, cfg)
	if err != nil {
		logging.Fatal("Image store setup failed", zap.Error(err))
	}

	articleService := services.NewArticleService(db, store, cfg.CacheTTL, logging.With(zap.String("component", "articles")))
	imageService := services.NewImageService(imageStore, logging.With(zap.String("component", "images")), cfg.ImageMaxKB, cfg.ImageMaxFiles)
	sessionStore := newSessionStore(cfg.SessionSecret, cfg.SessionSecure)

	router := setupRouter(db, articleService, imageService, sessionStore, logging)

	// Setup Cron
	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.StatsCron, func() {
		if err := refreshStatusGauge(context.Background(), articleService); err != nil {
			logging.Error("Status gauge refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		logging.Fatal("Invalid STATS_CRON", zap.String("schedule", cfg.StatsCron), zap.Error(err))
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()
	if err := refreshStatusGauge(ctx, articleService); err != nil {
		logging.Warn("Initial status gauge refresh failed", zap.Error(err))
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// setupRouter verdrahtet alle Routen; authentifizierte Routen hängen hinter requireUser.
func setupRouter(db *gorm.DB, articles *services.ArticleService, images *services.ImageService, store sessions.Store, logging *zap.Logger) *gin.Engine {
	router := gin.Default()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	setupAuthRoutes(router, db, store, logging)

	authed := router.Group("/", requireUser(db, store, logging))
	setupArticleRoutes(authed, articles, store, logging)
	setupImageRoutes(authed, images, logging)
	return router
}

func newCacheStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.CacheDriver != "redis" {
		return cache.NewMemoryStore(cache.WithMaxEntries(cfg.CacheMaxItems)), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return cache.NewRedisStore(client, cfg.CachePrefix), nil
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	if cfg.ImageStore != "s3" {
		return storage.NewLocalImageStore(cfg.ImageLocalDir), nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3Options{
		URL:    cfg.S3URL,
		Region: cfg.S3Region,
		Key:    cfg.S3Key,
		Secret: cfg.S3Secret,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return storage.NewS3ImageStore(client, cfg.S3Bucket), nil
}

func refreshStatusGauge(ctx context.Context, articles *services.ArticleService) error {
	counts, err := articles.CountByStatus(ctx)
	if err != nil {
		return err
	}
	for status, n := range counts {
		articlesByStatusGauge.WithLabelValues(string(status)).Set(float64(n))
	}
	return nil
}

func seedDefaultRoles(db *gorm.DB, logger *zap.Logger) {
	for _, name := range models.DefaultRoles {
		role := models.Role{Name: name}
		if err := db.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			logger.Warn("Failed to seed role", zap.String("role", name), zap.Error(err))
		}
	}
	logger.Info("Default roles seeded.")
}

// seedBootstrapAdmin legt einen ersten Administrator an, wenn konfiguriert und noch nicht vorhanden.
func seedBootstrapAdmin(db *gorm.DB, cfg *config.Config, logger *zap.Logger) {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return
	}
	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	var count int64
	db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Warn("Failed to hash bootstrap password", zap.Error(err))
		return
	}
	var roles []models.Role
	if err := db.Where("name IN ?", []string{models.RoleAdministrator, models.RoleExecutive}).Find(&roles).Error; err != nil {
		logger.Warn("Failed to load roles for bootstrap admin", zap.Error(err))
		return
	}
	admin := models.User{Name: "Administrator", Email: email, PasswordHash: string(hash), Roles: roles}
	if err := db.Create(&admin).Error; err != nil {
		logger.Warn("Failed to seed bootstrap admin", zap.Error(err))
	} else {
		logger.Info("Bootstrap admin seeded.", zap.String("email", email))
	}
}
