package handlers

import (
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"preview-service/internal/services"
)

// preloadConcurrency bounds the parallel store reads of one preload request.
const preloadConcurrency = 4

// CacheHandler handles the asset cache endpoints.
type CacheHandler struct {
	cache    *services.AssetCache
	previews *services.PreviewService
}

func NewCacheHandler(cache *services.AssetCache, previews *services.PreviewService) *CacheHandler {
	return &CacheHandler{
		cache:    cache,
		previews: previews,
	}
}

// Register mounts the cache routes on r.
func (h *CacheHandler) Register(r fiber.Router) {
	r.Post("/cache/preload", h.PreloadPreviews)
	r.Get("/cache/stats", h.GetCacheStats)
	r.Delete("/cache/previews/:id", h.InvalidatePreview)
	r.Post("/cache/clear", h.ClearCache)
}

// PreloadRequest represents the request body for preloading previews
type PreloadRequest struct {
	IDs []string `json:"ids"`
}

// PreloadPreviews handles POST /cache/preload to warm the cache with preview models
// @Summary Preload preview models into cache
// @Description Loads the models of the given previews into the asset cache
// @Tags cache
// @Accept json
// @Produce json
// @Param request body PreloadRequest true "Preview IDs to preload"
// @Success 200 {object} map[string]interface{} "Preload successful"
// @Failure 207 {object} map[string]interface{} "Partial success"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Router /cache/preload [post]
func (h *CacheHandler) PreloadPreviews(c *fiber.Ctx) error {
	var request PreloadRequest
	if err := c.BodyParser(&request); err != nil {
		log.Warnf("Invalid preload request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request format",
		})
	}

	ids := make([]uuid.UUID, 0, len(request.IDs))
	for _, idStr := range request.IDs {
		// accept "<uuid>.glb" as well
		id, err := uuid.Parse(strings.TrimSuffix(idStr, ".glb"))
		if err != nil {
			log.Warnf("Skipping invalid preload id %q", idStr)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No valid preview IDs provided",
		})
	}

	var failed atomic.Int32
	g, ctx := errgroup.WithContext(c.UserContext())
	g.SetLimit(preloadConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if _, _, _, err := h.previews.ModelData(ctx, id); err != nil {
				log.Warnf("Failed to preload preview %s: %v", id, err)
				failed.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	preloaded := len(ids) - int(failed.Load())
	status, success, message := fiber.StatusOK, true, "Previews preloaded successfully"
	if preloaded < len(ids) {
		status, success, message = fiber.StatusMultiStatus, preloaded > 0, "Some previews could not be preloaded"
	}
	log.Infof("Preloaded %d/%d previews", preloaded, len(ids))
	return c.Status(status).JSON(fiber.Map{
		"success":   success,
		"message":   message,
		"preloaded": preloaded,
	})
}

// GetCacheStats handles GET /cache/stats to retrieve cache statistics
// @Summary Get cache statistics
// @Tags cache
// @Produce json
// @Success 200 {object} services.CacheStats "Cache statistics"
// @Router /cache/stats [get]
func (h *CacheHandler) GetCacheStats(c *fiber.Ctx) error {
	return c.JSON(h.cache.Stats())
}

// InvalidatePreview handles DELETE /cache/previews/:id to drop a cached model
// @Summary Invalidate a cached preview model
// @Tags cache
// @Param id path string true "Preview ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Preview not found"
// @Router /cache/previews/{id} [delete]
func (h *CacheHandler) InvalidatePreview(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	if err := h.previews.InvalidateModel(id); err != nil {
		return serviceError(c, "Error invalidating cache for preview "+id.String(), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearCache handles POST /cache/clear to clear all cached models
// @Summary Clear entire cache
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]interface{} "Cache cleared"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cache/clear [post]
func (h *CacheHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.cache.ClearAll(); err != nil {
		log.Errorf("Error clearing cache: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to clear cache",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Cache cleared successfully",
	})
}
