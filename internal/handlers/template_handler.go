package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/quizdesk/assignment-service/internal/services"
	"github.com/quizdesk/assignment-service/internal/utils"
	"github.com/quizdesk/assignment-service/internal/validator"
)

type TemplateHandler struct {
	BaseHandler
	templateService services.TemplateService
	validator       *validator.Validator
}

func NewTemplateHandler(
	templateService services.TemplateService,
	validator *validator.Validator,
	logger utils.Logger,
) *TemplateHandler {
	return &TemplateHandler{
		BaseHandler:     NewBaseHandler(logger),
		templateService: templateService,
		validator:       validator,
	}
}

// CreateTemplate creates a new quiz template
// @Summary Create template
// @Description Creates a new quiz template with its question list
// @Tags templates
// @Accept json
// @Produce json
// @Param template body services.CreateTemplateRequest true "Template data"
// @Success 201 {object} services.TemplateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req services.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating template", "title", req.Title)

	template, err := h.templateService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// GetTemplate retrieves a template by ID
// @Summary Get template
// @Description Retrieves a quiz template by its ID
// @Tags templates
// @Accept json
// @Produce json
// @Param id path uint true "Template ID"
// @Success 200 {object} services.TemplateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	template, err := h.templateService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// GetTemplateWithQuestions retrieves a template including its questions
// @Summary Get template with questions
// @Description Retrieves a template with its full question list. The answer
// key is only included for the template creator.
// @Tags templates
// @Accept json
// @Produce json
// @Param id path uint true "Template ID"
// @Success 200 {object} services.TemplateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /templates/{id}/details [get]
func (h *TemplateHandler) GetTemplateWithQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting template details", "template_id", id)

	template, err := h.templateService.GetByIDWithQuestions(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// UpdateTemplate updates a template
// @Summary Update template
// @Description Updates a template's title or replaces its question list.
// Templates backing active assignments cannot be changed.
// @Tags templates
// @Accept json
// @Produce json
// @Param id path uint true "Template ID"
// @Param template body services.UpdateTemplateRequest true "Updated fields"
// @Success 200 {object} services.TemplateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating template", "template_id", id)

	template, err := h.templateService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// DeleteTemplate deletes a template
// @Summary Delete template
// @Description Deletes a template. Templates backing active assignments
// cannot be removed.
// @Tags templates
// @Accept json
// @Produce json
// @Param id path uint true "Template ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting template", "template_id", id)

	if err := h.templateService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Template deleted successfully",
	})
}

// ListTemplates lists templates with pagination
// @Summary List templates
// @Description Lists quiz templates with optional filters and pagination
// @Tags templates
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param created_by query string false "Filter by creator"
// @Success 200 {object} services.TemplateListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	filters := h.parseTemplateFilters(c)

	templates, err := h.templateService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, templates)
}

// SearchTemplates searches templates by title
// @Summary Search templates
// @Description Searches quiz templates by title substring
// @Tags templates
// @Accept json
// @Produce json
// @Param q query string true "Search query"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} services.TemplateListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /templates/search [get]
func (h *TemplateHandler) SearchTemplates(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Search query is required",
		})
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	filters := h.parseTemplateFilters(c)

	templates, err := h.templateService.Search(c.Request.Context(), query, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, templates)
}

// GetMyTemplates lists templates created by the authenticated user
// @Summary Get own templates
// @Description Lists templates created by the authenticated user
// @Tags templates
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} services.TemplateListResponse
// @Failure 401 {object} ErrorResponse
// @Router /templates/me [get]
func (h *TemplateHandler) GetMyTemplates(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	filters := h.parseTemplateFilters(c)

	templates, err := h.templateService.GetByCreator(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, templates)
}

// GetTemplateStats retrieves usage statistics for a template
// @Summary Get template statistics
// @Description Retrieves assignment counts and score statistics for a template
// @Tags templates
// @Accept json
// @Produce json
// @Param id path uint true "Template ID"
// @Success 200 {object} repositories.TemplateStats
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /templates/{id}/stats [get]
func (h *TemplateHandler) GetTemplateStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	stats, err := h.templateService.GetStats(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *TemplateHandler) parseTemplateFilters(c *gin.Context) repositories.TemplateFilters {
	filters := repositories.TemplateFilters{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	page := h.parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := h.parseIntQuery(c, "size", 20)
	if size < 1 || size > 100 {
		size = 20
	}
	filters.Limit = size
	filters.Offset = (page - 1) * size

	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}
	if title := c.Query("title"); title != "" {
		filters.Title = &title
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &t
		}
	}

	return filters
}
