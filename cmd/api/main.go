package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"availability-portal/internal/analytics"
	"availability-portal/internal/archive"
	"availability-portal/internal/config"
	"availability-portal/internal/handlers"
	"availability-portal/internal/models"
	"availability-portal/internal/probe"
	"availability-portal/internal/ratelimit"
	"availability-portal/internal/records"
	"availability-portal/internal/scheduler"
	"availability-portal/internal/search"
	"availability-portal/internal/series"
	"availability-portal/internal/sheets"
)

var (
	appConfig    *config.Config
	sheetsClient *sheets.Client
	resolver     *probe.Resolver
	snapCache    *series.Cache
	assembler    *series.Assembler
	archiveStore archive.Store
	searchClient *search.SearchClient
	apiLimiter   *ratelimit.APILimiter
	appScheduler *scheduler.Scheduler
)

func main() {
	// Load configuration
	configPath := getEnv("CONFIG_PATH", "/app/config/portal_config.yaml")
	var err error
	appConfig, err = config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}

	// Upstream client with probe pacing
	probeLimiter := ratelimit.NewProbeLimiter(
		appConfig.Probe.MaxInFlight,
		time.Duration(appConfig.Probe.BaseDelayMs)*time.Millisecond,
		time.Duration(appConfig.Probe.JitterMs)*time.Millisecond,
	)
	sheetsClient = sheets.NewClient(appConfig.Upstream, probeLimiter)

	// Tab discovery over the upstream client
	generator := probe.NewGenerator(appConfig.Probe.DateFormats, appConfig.Probe.TimeSuffixes)
	mapper := records.NewMapper(records.Options{
		Categories:            appConfig.Validation.Categories,
		ExcludedNames:         appConfig.Validation.ExcludedNames,
		RequiredLinkSubstring: appConfig.Validation.RequiredLinkSubstring,
	})
	resolver = probe.NewResolver(sheetsClient, generator, mapper,
		appConfig.Probe.Concurrency, appConfig.Probe.MinBodyBytes)
	if appConfig.Upstream.IndexURL != "" {
		resolver.WithTabLister(sheetsClient)
		log.Println("Tab index fallback enabled")
	}

	// Optional snapshot archive
	if appConfig.Archive.Enabled {
		archiveStore, err = archive.New(appConfig.Archive)
		if err != nil {
			log.Fatalf("Failed to connect to archive (%s): %v", appConfig.Archive.Type, err)
		}
		defer archiveStore.Close()
		log.Printf("Archive enabled (%s, retention %d days)", appConfig.Archive.Type, appConfig.Archive.RetentionDays)
	}

	// Series assembly over cache + archive
	snapCache = series.NewCache(appConfig.Cache.GetTTL())
	assembler = series.NewAssembler(resolver, snapCache, archiveStore,
		appConfig.Probe.Concurrency, appConfig.Probe.MaxLookbackDays)

	// Initialize Meilisearch using config
	meilisearchHost := appConfig.Search.Meilisearch.Host
	if meilisearchHost == "" {
		meilisearchHost = getEnv("MEILISEARCH_HOST", "http://meilisearch:7700")
	}
	meilisearchKey := appConfig.Search.Meilisearch.APIKey
	if meilisearchKey == "" {
		meilisearchKey = getEnv("MEILISEARCH_KEY", "masterKey123")
	}
	searchClient = search.NewSearchClient(meilisearchHost, meilisearchKey)
	if err := searchClient.InitIndex(); err != nil {
		log.Printf("Warning: Failed to initialize search index: %v", err)
	}

	// Initialize rate limiter
	apiLimiter = ratelimit.NewAPILimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.Enabled,
	)
	log.Printf("Rate limiter initialized: %d req/min, %d req/hour (enabled: %v)",
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.Enabled,
	)

	// Daily warm scheduler
	var cleanup func() (int64, error)
	if archiveStore != nil {
		cleanup = func() (int64, error) {
			return archiveStore.DeleteOlderThan(appConfig.Archive.RetentionDays)
		}
	}
	appScheduler = scheduler.NewScheduler(assembler, searchClient, cleanup, appConfig)
	if err := appScheduler.Start(); err != nil {
		log.Printf("Warning: Failed to start scheduler: %v", err)
	}
	defer appScheduler.Stop()

	// Setup Gin router
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{getEnv("FRONTEND_ORIGIN", "http://localhost:5173")},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	// Routes
	r.GET("/health", healthCheck)

	// Probe-triggering routes with rate limiting
	r.GET("/api/records", rateLimitMiddleware(), getRecords)
	r.GET("/api/analytics", rateLimitMiddleware(), getAnalytics)
	r.GET("/api/dates", rateLimitMiddleware(), getDates)

	r.GET("/api/search", searchRecords)
	r.POST("/api/cache/purge", purgeCache)
	r.GET("/api/ratelimit/stats", getRateLimitStats)

	// Admin API routes (requires authentication in production)
	adminHandler := handlers.NewAdminHandler(snapCache, archiveStore, appScheduler,
		sheetsClient.Breaker(), apiLimiter, appConfig)
	admin := r.Group("/api/admin")
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.POST("/warm", adminHandler.TriggerWarm)
		admin.POST("/cleanup", adminHandler.RunCleanup)
	}

	port := getEnv("PORT", "8085")
	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

// getRecords returns the validated records for one date. Without a date
// parameter it walks back from today to the latest resolvable day.
func getRecords(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), appConfig.Analytics.GetResolveTimeout())
	defer cancel()

	var (
		snap *models.DaySnapshot
		err  error
	)

	if dateStr := c.Query("date"); dateStr != "" {
		date, parseErr := time.Parse(models.DateLayout, dateStr)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		snap, err = assembler.ResolveDate(ctx, date)
	} else {
		snap, err = assembler.LatestAt(ctx, time.Now().UTC())
	}

	if err != nil {
		if errors.Is(err, probe.ErrTabNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// getAnalytics builds the derived report over the trailing window.
func getAnalytics(c *gin.Context) {
	days := parseWindowDays(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), appConfig.Analytics.GetResolveTimeout())
	defer cancel()

	start := time.Now()
	seriesData, err := assembler.BuildSeries(ctx, time.Now().UTC(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	report, err := analytics.Build(seriesData, analyticsOptions())
	if err != nil {
		if errors.Is(err, analytics.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no data available"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("[Analytics API] duration_ms=%d window=%d resolved=%d partial=%v",
		time.Since(start).Milliseconds(), report.WindowDays, report.ResolvedDays, report.Partial)

	c.JSON(http.StatusOK, report)
}

// getDates lists the resolvable dates in the trailing window.
func getDates(c *gin.Context) {
	days := parseWindowDays(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), appConfig.Analytics.GetResolveTimeout())
	defer cancel()

	dates, err := assembler.AvailableDates(ctx, time.Now().UTC(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window_days": days,
		"dates":       dates,
		"count":       len(dates),
	})
}

// searchRecords queries the search index; without a query it falls back
// to the latest snapshot's records.
func searchRecords(c *gin.Context) {
	query := c.Query("q")
	limitStr := c.DefaultQuery("limit", "20")

	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil {
		limit = 20
	}

	if query == "" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), appConfig.Analytics.GetResolveTimeout())
		defer cancel()

		snap, err := assembler.LatestAt(ctx, time.Now().UTC())
		if err != nil {
			if errors.Is(err, probe.ErrTabNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snap.Records)
		return
	}

	results, err := searchClient.Search(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}

// purgeCache drops all memoized snapshots
func purgeCache(c *gin.Context) {
	purged := snapCache.Purge()
	c.JSON(http.StatusOK, gin.H{
		"purged": purged,
	})
}

// getRateLimitStats returns current rate limiter statistics
func getRateLimitStats(c *gin.Context) {
	stats := apiLimiter.GetStats()
	c.JSON(http.StatusOK, stats)
}

// parseWindowDays reads the days query parameter, clamped to the
// configured window bounds.
func parseWindowDays(c *gin.Context) int {
	days := appConfig.Analytics.DefaultWindowDays
	if daysStr := c.Query("days"); daysStr != "" {
		if parsed, err := strconv.Atoi(daysStr); err == nil {
			days = parsed
		}
	}
	if days < 1 {
		days = 1
	}
	if days > appConfig.Analytics.MaxWindowDays {
		days = appConfig.Analytics.MaxWindowDays
	}
	return days
}

func analyticsOptions() analytics.Options {
	regions := make([]analytics.Region, 0, len(appConfig.Regions))
	for _, r := range appConfig.Regions {
		regions = append(regions, analytics.Region{Name: r.Name, Keywords: r.Keywords})
	}
	return analytics.Options{
		TrackableCategories:    appConfig.Validation.TrackableCategories,
		ImmediateThresholdDays: appConfig.Analytics.ImmediateThresholdDays,
		RankSize:               appConfig.Analytics.RankSize,
		WeekMinimumDelta:       appConfig.Analytics.WeekMinimumDelta,
		Regions:                regions,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// rateLimitMiddleware returns a Gin middleware that enforces rate limiting
func rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !apiLimiter.AllowRequest() {
			stats := apiLimiter.GetStats()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
				"stats":   stats,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
