// Package handlers holds the gin handlers that don't fit in main:
// operational endpoints for stats, manual warm and archive cleanup.
package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"availability-portal/internal/archive"
	"availability-portal/internal/config"
	"availability-portal/internal/ratelimit"
	"availability-portal/internal/scheduler"
	"availability-portal/internal/series"
	"availability-portal/internal/sheets"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	cache     *series.Cache
	store     archive.Store
	scheduler *scheduler.Scheduler
	breaker   *sheets.CircuitBreaker
	limiter   *ratelimit.APILimiter
	config    *config.Config
}

// NewAdminHandler creates a new admin handler. store and sched may be nil
// when archiving or scheduling is disabled.
func NewAdminHandler(cache *series.Cache, store archive.Store, sched *scheduler.Scheduler,
	breaker *sheets.CircuitBreaker, limiter *ratelimit.APILimiter, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		cache:     cache,
		store:     store,
		scheduler: sched,
		breaker:   breaker,
		limiter:   limiter,
		config:    cfg,
	}
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})

	stats["cache"] = map[string]interface{}{
		"entries":     h.cache.Len(),
		"ttl_minutes": h.config.Cache.TTLMinutes,
	}

	if h.breaker != nil {
		isOpen, failures, total := h.breaker.GetStatus()
		stats["breaker"] = map[string]interface{}{
			"open":     isOpen,
			"failures": failures,
			"requests": total,
		}
	}

	if h.limiter != nil {
		stats["rate_limit"] = h.limiter.GetStats()
	}

	if h.store != nil {
		dates, err := h.store.Dates(0)
		if err != nil {
			log.Printf("[Admin] Failed to list archived dates: %v", err)
		} else {
			archived := map[string]interface{}{"dates": len(dates)}
			if len(dates) > 0 {
				archived["newest"] = dates[0]
				archived["oldest"] = dates[len(dates)-1]
			}
			stats["archive"] = archived
		}
	}

	c.JSON(http.StatusOK, stats)
}

// TriggerWarm manually triggers the cache warm job
func (h *AdminHandler) TriggerWarm(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Scheduler not available",
		})
		return
	}

	log.Println("[Admin] Manual warm trigger requested")

	// Run in goroutine to avoid blocking
	go func() {
		if err := h.scheduler.RunNow(); err != nil {
			log.Printf("[Admin] Manual warm failed: %v", err)
		} else {
			log.Println("[Admin] Manual warm completed successfully")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Warm job started",
		"status":  "running",
	})
}

// RunCleanup applies archive retention, removing rows older than the
// requested (or configured) number of days.
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Archive not enabled",
		})
		return
	}

	var req struct {
		RetentionDays int `json:"retention_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	retention := req.RetentionDays
	if retention <= 0 {
		retention = h.config.Archive.RetentionDays
	}

	log.Printf("[Admin] Running archive cleanup (retention: %d days)", retention)

	removed, err := h.store.DeleteOlderThan(retention)
	if err != nil {
		log.Printf("[Admin] Cleanup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"removed_rows":   removed,
		"retention_days": retention,
	})
}
