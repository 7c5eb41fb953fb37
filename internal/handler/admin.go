package handler

import (
	"net/http"
	"runtime"
	"time"

	"lifedash-api/internal/cache"
	"lifedash-api/internal/service"
	"lifedash-api/pkg/apierror"
	"lifedash-api/pkg/response"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler exposes cache inspection and maintenance.
type AdminHandler struct {
	cache     *cache.TaggedCache
	tracker   *service.TrackerService
	janitor   *service.CacheJanitor
	publisher service.Publisher // optional
	dbType    string
	logger    *zap.Logger
	startTime time.Time
}

// AdminConfig holds the admin handler dependencies.
type AdminConfig struct {
	Cache     *cache.TaggedCache
	Tracker   *service.TrackerService
	Janitor   *service.CacheJanitor
	Publisher service.Publisher
	DBType    string
	Logger    *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		cache:     cfg.Cache,
		tracker:   cfg.Tracker,
		janitor:   cfg.Janitor,
		publisher: cfg.Publisher,
		dbType:    cfg.DBType,
		logger:    logger.Named("admin"),
		startTime: time.Now(),
	}
}

func (h *AdminHandler) requireCache(w http.ResponseWriter) bool {
	if h.cache == nil {
		response.Error(w, apierror.ServiceUnavailable("cache is disabled"))
		return false
	}
	return true
}

// GetCacheStats handles GET /api/v1/admin/cache
func (h *AdminHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireCache(w) {
		return
	}
	response.OK(w, h.cache.Stats())
}

// GetCacheEntry handles GET /api/v1/admin/cache/entries/{key}
func (h *AdminHandler) GetCacheEntry(w http.ResponseWriter, r *http.Request) {
	if !h.requireCache(w) {
		return
	}

	info, ok := h.cache.Inspect(chi.URLParam(r, "key"))
	if !ok {
		response.Error(w, apierror.NotFound("cache entry not found"))
		return
	}
	response.OK(w, info)
}

// GetCacheTag handles GET /api/v1/admin/cache/tags/{tag}
func (h *AdminHandler) GetCacheTag(w http.ResponseWriter, r *http.Request) {
	if !h.requireCache(w) {
		return
	}

	tag := chi.URLParam(r, "tag")
	response.OK(w, map[string]interface{}{
		"tag":  tag,
		"keys": h.cache.TagKeys(tag),
	})
}

type invalidateRequest struct {
	Tags []string `json:"tags" validate:"required,min=1,max=50,dive,cachetag"`
}

// InvalidateTags handles POST /api/v1/admin/cache/invalidate
func (h *AdminHandler) InvalidateTags(w http.ResponseWriter, r *http.Request) {
	if !h.requireCache(w) {
		return
	}

	var req invalidateRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	removed := h.cache.InvalidateByTags(req.Tags...)
	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), req.Tags...); err != nil {
			h.logger.Warn("failed to publish invalidation", zap.Strings("tags", req.Tags), zap.Error(err))
		}
	}

	h.logger.Info("invalidated tags", zap.Strings("tags", req.Tags), zap.Int("removed", removed))
	response.OK(w, map[string]interface{}{
		"tags":    req.Tags,
		"removed": removed,
	})
}

// CleanupExpired handles POST /api/v1/admin/cache/cleanup
func (h *AdminHandler) CleanupExpired(w http.ResponseWriter, r *http.Request) {
	if !h.requireCache(w) {
		return
	}

	var removed int
	if h.janitor != nil {
		removed = h.janitor.RunNow()
	} else {
		removed = h.cache.CleanupExpired()
	}
	response.OK(w, map[string]int{"removed": removed})
}

// ClearCache handles DELETE /api/v1/admin/cache
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if !h.requireCache(w) {
		return
	}

	removed := h.cache.Clear()
	h.logger.Info("cache cleared", zap.Int("removed", removed))
	response.OK(w, map[string]int{"removed": removed})
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	// System info
	uptime := time.Since(h.startTime)
	stats["uptime_seconds"] = int64(uptime.Seconds())
	stats["uptime_human"] = uptime.Round(time.Second).String()
	stats["started"] = humanize.Time(h.startTime)
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc":       humanize.Bytes(memStats.Alloc),
		"total_alloc": humanize.Bytes(memStats.TotalAlloc),
		"sys":         humanize.Bytes(memStats.Sys),
		"heap_inuse":  humanize.Bytes(memStats.HeapInuse),
		"num_gc":      memStats.NumGC,
		"goroutines":  runtime.NumGoroutine(),
	}

	if h.cache != nil {
		s := h.cache.Stats()
		stats["cache"] = map[string]interface{}{
			"status":   "enabled",
			"entries":  humanize.Comma(int64(s.Size)) + " / " + humanize.Comma(int64(s.MaxSize)),
			"requests": humanize.Comma(s.Requests()),
			"hit_rate": humanize.FormatFloat("#.##", s.HitRate) + "%",
			"tags":     s.TagsCount,
		}
	} else {
		stats["cache"] = map[string]interface{}{"status": "disabled"}
	}

	if h.tracker != nil {
		storeStats, err := h.tracker.GetStats(r.Context())
		if err == nil {
			storeStats["status"] = "connected"
			stats["store"] = storeStats
		} else {
			stats["store"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
