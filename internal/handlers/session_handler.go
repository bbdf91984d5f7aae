package handlers

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"preview-service/internal/services"
	"preview-service/internal/viewer"
)

// SessionHandler exposes headless viewer sessions.
type SessionHandler struct {
	Service *services.SessionService
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{Service: service}
}

// Register mounts the session routes on r.
func (h *SessionHandler) Register(r fiber.Router) {
	r.Get("/sessions", h.ListSessions)
	r.Post("/sessions", h.OpenSession)
	r.Get("/sessions/:id", h.GetSession)
	r.Put("/sessions/:id/source", h.SetSource)
	r.Put("/sessions/:id/visibility", h.SetVisibility)
	r.Put("/sessions/:id/focus", h.SetFocus)
	r.Post("/sessions/:id/views", h.SaveView)
	r.Post("/sessions/:id/views/:viewId/apply", h.ApplyView)
	r.Delete("/sessions/:id", h.CloseSession)
}

// LoadResponse summarizes a settled load.
type LoadResponse struct {
	State     viewer.State       `json:"state"`
	Warning   string             `json:"warning,omitempty"`
	Error     string             `json:"error,omitempty"`
	TimingsMs map[string]float64 `json:"timingsMs"`
}

func loadResponse(res viewer.LoadResult) LoadResponse {
	out := LoadResponse{
		State:   res.State,
		Warning: res.Warning,
		TimingsMs: map[string]float64{
			"metadata": millis(res.Timings.Metadata.Microseconds()),
			"asset":    millis(res.Timings.Asset.Microseconds()),
			"index":    millis(res.Timings.Index.Microseconds()),
			"total":    millis(res.Timings.Total.Microseconds()),
		},
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func millis(us int64) float64 { return float64(us) / 1000 }

type sessionResponse struct {
	Session *services.SessionView `json:"session"`
	Load    LoadResponse          `json:"load"`
}

type visibilityRequest struct {
	Visibility map[string]bool `json:"visibility"`
}

type focusRequest struct {
	LayerID string `json:"layerId"`
}

type saveViewRequest struct {
	Name string `json:"name"`
}

// ListSessions handles GET /sessions.
// @Summary List open viewer sessions
// @Tags sessions
// @Produce json
// @Success 200 {array} string "Session IDs"
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	return c.JSON(h.Service.List())
}

// OpenSession handles POST /sessions.
// @Summary Open a viewer session
// @Description Opens a session on a stored preview or on a preview url with an optional metadata url, and waits for the first load to settle. A model that fails to load still yields a session in the error state.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body services.Source true "What to load"
// @Success 201 {object} sessionResponse "Session opened"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Preview not found"
// @Router /sessions [post]
func (h *SessionHandler) OpenSession(c *fiber.Ctx) error {
	var src services.Source
	if err := c.BodyParser(&src); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	ms, res, err := h.Service.Open(c.UserContext(), src)
	if err != nil {
		return serviceError(c, "Failed to open session", err)
	}
	view, err := h.Service.View(ms.ID)
	if err != nil {
		return serviceError(c, "Failed to read session", err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse{Session: view, Load: loadResponse(res)})
}

// GetSession handles GET /sessions/:id.
// @Summary Get the state of a viewer session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionView "Session state"
// @Failure 404 {object} map[string]interface{} "Session not found"
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	view, err := h.Service.View(id)
	if err != nil {
		return serviceError(c, fmt.Sprintf("Failed to read session %s", id), err)
	}
	return c.JSON(view)
}

// SetSource handles PUT /sessions/:id/source.
// @Summary Load another model into a session
// @Description A request replaced by a newer one before it settles returns 409.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body services.Source true "What to load"
// @Success 200 {object} sessionResponse "Load settled"
// @Failure 404 {object} map[string]interface{} "Session or preview not found"
// @Failure 409 {object} map[string]interface{} "Superseded by a newer load"
// @Router /sessions/{id}/source [put]
func (h *SessionHandler) SetSource(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	var src services.Source
	if err := c.BodyParser(&src); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	res, err := h.Service.SetSource(c.UserContext(), id, src)
	if err != nil {
		return serviceError(c, fmt.Sprintf("Failed to load into session %s", id), err)
	}
	view, err := h.Service.View(id)
	if err != nil {
		return serviceError(c, fmt.Sprintf("Failed to read session %s", id), err)
	}
	return c.JSON(sessionResponse{Session: view, Load: loadResponse(res)})
}

// SetVisibility handles PUT /sessions/:id/visibility.
// @Summary Replace the layer visibility of a session
// @Description Layers missing from the map stay visible.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body visibilityRequest true "Layer visibility"
// @Success 200 {object} services.SessionView "Session state"
// @Failure 404 {object} map[string]interface{} "Session not found"
// @Router /sessions/{id}/visibility [put]
func (h *SessionHandler) SetVisibility(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	var req visibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.Service.SetVisibility(id, req.Visibility); err != nil {
		return serviceError(c, fmt.Sprintf("Failed to set visibility of %s", id), err)
	}
	return h.GetSession(c)
}

// SetFocus handles PUT /sessions/:id/focus.
// @Summary Focus a layer
// @Description An empty layerId clears the focus and restores the default camera.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body focusRequest true "Layer to focus"
// @Success 200 {object} services.SessionView "Session state"
// @Failure 404 {object} map[string]interface{} "Session not found"
// @Router /sessions/{id}/focus [put]
func (h *SessionHandler) SetFocus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	var req focusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.Service.SetFocus(id, req.LayerID); err != nil {
		return serviceError(c, fmt.Sprintf("Failed to focus %q in %s", req.LayerID, id), err)
	}
	return h.GetSession(c)
}

// SaveView handles POST /sessions/:id/views.
// @Summary Save the current visibility and focus of a session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body saveViewRequest false "View name"
// @Success 201 {object} models.ViewState "View saved"
// @Failure 404 {object} map[string]interface{} "Session not found"
// @Failure 409 {object} map[string]interface{} "Session shows no stored preview"
// @Router /sessions/{id}/views [post]
func (h *SessionHandler) SaveView(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	var req saveViewRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	view, err := h.Service.SaveView(id, req.Name)
	if err != nil {
		return serviceError(c, fmt.Sprintf("Failed to save view of %s", id), err)
	}
	log.Infof("Saved view %s (%s) for session %s", view.ID, view.Name, id)
	return c.Status(fiber.StatusCreated).JSON(view)
}

// ApplyView handles POST /sessions/:id/views/:viewId/apply.
// @Summary Restore a saved view into a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param viewId path string true "View ID"
// @Success 200 {object} services.SessionView "Session state"
// @Failure 404 {object} map[string]interface{} "Session or view not found"
// @Failure 409 {object} map[string]interface{} "Session shows no stored preview"
// @Router /sessions/{id}/views/{viewId}/apply [post]
func (h *SessionHandler) ApplyView(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	viewID, err := uuid.Parse(c.Params("viewId"))
	if err != nil {
		return invalidID(c, "viewId", err)
	}
	if _, err := h.Service.ApplyView(id, viewID); err != nil {
		return serviceError(c, fmt.Sprintf("Failed to apply view %s to %s", viewID, id), err)
	}
	return h.GetSession(c)
}

// CloseSession handles DELETE /sessions/:id.
// @Summary Close a viewer session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204 "Session closed"
// @Failure 404 {object} map[string]interface{} "Session not found"
// @Router /sessions/{id} [delete]
func (h *SessionHandler) CloseSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	if err := h.Service.Close(id); err != nil {
		return serviceError(c, fmt.Sprintf("Failed to close session %s", id), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
