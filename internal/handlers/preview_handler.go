package handlers

import (
	"fmt"
	"mime/multipart"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"preview-service/internal/metrics"
	_ "preview-service/internal/models"
	"preview-service/internal/services"
)

// PreviewHandler serves stored massing previews.
type PreviewHandler struct {
	Service *services.PreviewService
}

func NewPreviewHandler(service *services.PreviewService) *PreviewHandler {
	return &PreviewHandler{Service: service}
}

// Register mounts the preview routes on r.
func (h *PreviewHandler) Register(r fiber.Router) {
	r.Get("/previews", h.ListPreviews)
	r.Post("/previews", h.UploadPreview)
	r.Get("/previews/:id", h.GetPreview)
	r.Delete("/previews/:id", h.DeletePreview)
	r.Get("/previews/:id/model", h.DownloadModel)
	r.Get("/previews/:id/metadata", h.GetMetadata)
	r.Get("/previews/:id/views", h.ListViews)
}

func invalidID(c *fiber.Ctx, param string, err error) error {
	log.Warnf("Invalid UUID format: %s - Error: %v", c.Params(param), err)
	return errorJSON(c, fiber.StatusBadRequest, InvalidUuidError)
}

// ListPreviews handles GET /previews.
// @Summary List previews
// @Description Lists all stored massing previews, newest first
// @Tags previews
// @Produce json
// @Success 200 {array} models.Preview "Stored previews"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /previews [get]
func (h *PreviewHandler) ListPreviews(c *fiber.Ctx) error {
	previews, err := h.Service.ListPreviews()
	if err != nil {
		return serviceError(c, "Error listing previews", err)
	}
	log.Debugf("Listed %d previews", len(previews))
	return c.JSON(previews)
}

// GetPreview handles GET /previews/:id.
// @Summary Get a preview
// @Tags previews
// @Produce json
// @Param id path string true "Preview ID"
// @Success 200 {object} models.Preview "Preview found"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Preview not found"
// @Router /previews/{id} [get]
func (h *PreviewHandler) GetPreview(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	p, err := h.Service.GetPreview(id)
	if err != nil {
		return serviceError(c, fmt.Sprintf("Error fetching preview %s", id), err)
	}
	return c.JSON(p)
}

// UploadPreview handles POST /previews.
// @Summary Upload a massing model
// @Description Upload a GLB/glTF model, a model assimp can convert, or a zip/rar/7z bundle with the model and a metadata.json. Layer metadata may also be sent as a separate file.
// @Tags previews
// @Accept multipart/form-data
// @Produce json
// @Param model formData file true "Model file or bundle"
// @Param metadata formData file false "Layer metadata JSON"
// @Param title formData string false "Display title"
// @Success 201 {object} models.Preview "Preview created"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /previews [post]
func (h *PreviewHandler) UploadPreview(c *fiber.Ctx) error {
	modelHeader, err := c.FormFile("model")
	if err != nil {
		log.Warnf("Failed to read model file: %v", err)
		return errorJSON(c, fiber.StatusBadRequest, "failed to read model file: "+err.Error())
	}
	model, err := modelHeader.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "failed to open model file: "+err.Error())
	}
	defer model.Close()

	in := services.CreatePreviewInput{
		Title: c.FormValue("title"),
		Model: services.Upload{Filename: modelHeader.Filename, Body: model},
	}
	if metaHeader, err := c.FormFile("metadata"); err == nil {
		var meta multipart.File
		if meta, err = metaHeader.Open(); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "failed to open metadata file: "+err.Error())
		}
		defer meta.Close()
		in.Metadata = &services.Upload{Filename: metaHeader.Filename, Body: meta}
	}
	log.Infof("Processing preview upload: %s (%d bytes, metadata: %t)", modelHeader.Filename, modelHeader.Size, in.Metadata != nil)

	p, err := h.Service.CreatePreview(c.UserContext(), in)
	if err != nil {
		return serviceError(c, "Failed to create preview", err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// DeletePreview handles DELETE /previews/:id.
// @Summary Delete a preview
// @Description Deletes the preview, its saved views and stored files
// @Tags previews
// @Param id path string true "Preview ID"
// @Success 204 "Preview deleted"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Preview not found"
// @Router /previews/{id} [delete]
func (h *PreviewHandler) DeletePreview(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	if err := h.Service.DeletePreview(c.UserContext(), id); err != nil {
		return serviceError(c, fmt.Sprintf("Failed to delete preview %s", id), err)
	}
	log.Infof("Deleted preview %s", id)
	return c.SendStatus(fiber.StatusNoContent)
}

// DownloadModel handles GET /previews/:id/model.
// @Summary Download the GLB of a preview
// @Description Returns the model bytes with X-Latency-* and X-Cache-* headers
// @Tags previews
// @Produce application/octet-stream
// @Param id path string true "Preview ID"
// @Success 200 {file} binary "GLB model"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Preview not found"
// @Router /previews/{id}/model [get]
func (h *PreviewHandler) DownloadModel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	m := metrics.NewLatencyMetrics()

	var (
		data  []byte
		layer string
	)
	err = m.Time("fetch", func() error {
		var err error
		data, layer, _, err = h.Service.ModelData(c.UserContext(), id)
		return err
	})
	if err != nil {
		return serviceError(c, fmt.Sprintf("Failed to load model of %s", id), err)
	}
	m.RecordCache(layer != "", layer)
	m.SetObjectSize(int64(len(data)))
	m.Finalize()

	c.Set(fiber.HeaderContentType, "model/gltf-binary")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"%s.glb\"", id))
	c.Set("Cache-Control", "public, max-age=3600")
	c.Set("ETag", fmt.Sprintf("\"%s\"", id))
	for key, value := range m.GetHeaders() {
		c.Set(key, value)
	}
	log.Debugf("Served model %s (%d bytes, cache layer %q, %.2fms)", id, len(data), layer, m.TotalLatencyMs)
	return c.Send(data)
}

// GetMetadata handles GET /previews/:id/metadata.
// @Summary Get the normalized layer metadata of a preview
// @Tags previews
// @Produce json
// @Param id path string true "Preview ID"
// @Success 200 {object} models.PreviewMetadata "Normalized metadata"
// @Failure 404 {object} map[string]interface{} "Preview or metadata not found"
// @Router /previews/{id}/metadata [get]
func (h *PreviewHandler) GetMetadata(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	md, err := h.Service.Metadata(c.UserContext(), id)
	if err != nil {
		return serviceError(c, fmt.Sprintf("Failed to load metadata of %s", id), err)
	}
	return c.JSON(md)
}

// ListViews handles GET /previews/:id/views.
// @Summary List saved views of a preview
// @Tags previews
// @Produce json
// @Param id path string true "Preview ID"
// @Success 200 {array} models.ViewState "Saved views"
// @Failure 404 {object} map[string]interface{} "Preview not found"
// @Router /previews/{id}/views [get]
func (h *PreviewHandler) ListViews(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id", err)
	}
	views, err := h.Service.ListViews(id)
	if err != nil {
		return serviceError(c, fmt.Sprintf("Failed to list views of %s", id), err)
	}
	return c.JSON(views)
}
