package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/quizdesk/assignment-service/internal/services"
	"github.com/quizdesk/assignment-service/internal/utils"
	"github.com/quizdesk/assignment-service/internal/validator"
)

type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
	reportService     services.ReportService
	validator         *validator.Validator
}

func NewAssignmentHandler(
	assignmentService services.AssignmentService,
	reportService services.ReportService,
	validator *validator.Validator,
	logger utils.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
		reportService:     reportService,
		validator:         validator,
	}
}

// CreateAssignment assigns a quiz template to a user
// @Summary Create assignment
// @Description Assigns a quiz template to an assignee with an optional time
// limit and deadline
// @Tags assignments
// @Accept json
// @Produce json
// @Param assignment body services.CreateAssignmentRequest true "Assignment data"
// @Success 201 {object} services.AssignmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assignments [post]
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	var req services.CreateAssignmentRequest
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

	h.LogRequest(c, "Creating assignment",
		"template_id", req.TemplateID,
		"assignee_id", req.AssigneeID)

	assignment, err := h.assignmentService.Assign(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// StartAssignment starts an assigned quiz
// @Summary Start assignment
// @Description Moves an assignment to in-progress and returns the first
// question. Starting an already running assignment resumes it.
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Success 200 {object} services.StartResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assignments/{id}/start [post]
func (h *AssignmentHandler) StartAssignment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting assignment", "assignment_id", id)

	result, err := h.assignmentService.Start(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SubmitAnswer submits a response to the current question
// @Summary Submit answer
// @Description Grades and records a response to the assignment's current
// question, then advances to the next one or finishes the run
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param answer body services.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} services.SubmitResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assignments/{id}/answer [post]
func (h *AssignmentHandler) SubmitAnswer(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitAnswerRequest
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

	h.LogRequest(c, "Submitting answer",
		"assignment_id", id,
		"question_id", req.QuestionID)

	result, err := h.assignmentService.SubmitAnswer(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ToggleSelection flips one option of the current multi-select question
// @Summary Toggle option selection
// @Description Toggles an option on the current multi-select question without
// submitting it. The pending set is used when the answer is confirmed.
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param question_id query uint true "Question ID"
// @Param option query int true "Option index"
// @Success 200 {object} services.ToggleResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assignments/{id}/toggle [post]
func (h *AssignmentHandler) ToggleSelection(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	questionID := h.parseIntQuery(c, "question_id", 0)
	if questionID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid question_id parameter",
		})
		return
	}

	optionIndex := h.parseIntQuery(c, "option", -1)
	if optionIndex < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid option parameter",
		})
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	result, err := h.assignmentService.ToggleSelection(
		c.Request.Context(), id, uint(questionID), optionIndex, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelAssignment cancels an assignment
// @Summary Cancel assignment
// @Description Cancels an assignment and discards any recorded answers.
// Only the assigner may cancel.
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assignments/{id}/cancel [post]
func (h *AssignmentHandler) CancelAssignment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Canceling assignment", "assignment_id", id)

	if err := h.assignmentService.Cancel(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Assignment canceled successfully",
	})
}

// SaveAssignment archives a completed assignment
// @Summary Save assignment
// @Description Marks a finished or expired assignment as saved so it stays
// in the assigner's report list
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assignments/{id}/save [post]
func (h *AssignmentHandler) SaveAssignment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Saving assignment", "assignment_id", id)

	if err := h.assignmentService.Save(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Assignment saved successfully",
	})
}

// GetAssignment retrieves an assignment by ID
// @Summary Get assignment
// @Description Retrieves an assignment. Only the assigner and the assignee
// may view it.
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Success 200 {object} services.AssignmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	assignment, err := h.assignmentService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// GetCurrentQuestion retrieves the current question of a running assignment
// @Summary Get current question
// @Description Retrieves the question at the assignment's current position
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Success 200 {object} services.QuestionView
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assignments/{id}/question [get]
func (h *AssignmentHandler) GetCurrentQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	question, err := h.assignmentService.CurrentQuestion(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// ListAssignments lists assignments with pagination
// @Summary List assignments
// @Description Lists assignments visible to the authenticated user
// @Tags assignments
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param status query string false "Filter by status"
// @Success 200 {object} services.AssignmentListResponse
// @Failure 401 {object} ErrorResponse
// @Router /assignments [get]
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	filters := h.parseAssignmentFilters(c)

	assignments, err := h.assignmentService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignments)
}

// GetMyAssignments lists the authenticated user's active assignments
// @Summary Get own active assignments
// @Description Lists assignments currently awaiting or in progress for the
// authenticated user
// @Tags assignments
// @Accept json
// @Produce json
// @Success 200 {object} []services.AssignmentResponse
// @Failure 401 {object} ErrorResponse
// @Router /assignments/me/active [get]
func (h *AssignmentHandler) GetMyAssignments(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	assignments, err := h.assignmentService.GetActiveForAssignee(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignments)
}

// GetAssigneeStats retrieves aggregate results for one assignee
// @Summary Get assignee statistics
// @Description Retrieves completion counts and average score for an assignee.
// Users may view their own stats; admins may view anyone's.
// @Tags assignments
// @Accept json
// @Produce json
// @Param assignee_id path string true "Assignee ID"
// @Success 200 {object} repositories.AssigneeStats
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /assignments/stats/{assignee_id} [get]
func (h *AssignmentHandler) GetAssigneeStats(c *gin.Context) {
	assigneeID := c.Param("assignee_id")
	if assigneeID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid assignee_id parameter",
		})
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	stats, err := h.assignmentService.GetAssigneeStats(c.Request.Context(), assigneeID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetReport retrieves the per-question report of one assignment
// @Summary Get assignment report
// @Description Retrieves the per-question breakdown and score of a finished
// assignment
// @Tags reports
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Success 200 {object} services.AssignmentReport
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{id}/report [get]
func (h *AssignmentHandler) GetReport(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	report, err := h.reportService.BuildReport(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListRecentReports lists reports for the assigner's recent assignments
// @Summary List recent reports
// @Description Lists reports for assignments the authenticated user assigned
// that finished recently or were saved
// @Tags reports
// @Accept json
// @Produce json
// @Param days query int false "Lookback window in days" default(7)
// @Param limit query int false "Maximum reports" default(50)
// @Success 200 {object} services.RecentReportsResponse
// @Failure 401 {object} ErrorResponse
// @Router /assignments/reports/recent [get]
func (h *AssignmentHandler) ListRecentReports(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	since, limit := h.parseReportWindow(c)

	reports, err := h.reportService.ListRecent(c.Request.Context(), userID, since, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reports)
}

// ExportReports exports recent reports as a spreadsheet
// @Summary Export reports
// @Description Exports the assigner's recent reports as an XLSX file
// @Tags reports
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param days query int false "Lookback window in days" default(7)
// @Success 200 {file} binary
// @Failure 401 {object} ErrorResponse
// @Router /assignments/reports/export [get]
func (h *AssignmentHandler) ExportReports(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	since, _ := h.parseReportWindow(c)

	h.LogRequest(c, "Exporting reports", "since", since)

	data, err := h.reportService.ExportXLSX(c.Request.Context(), userID, since)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("assignment-reports-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *AssignmentHandler) parseReportWindow(c *gin.Context) (time.Time, int) {
	days := h.parseIntQuery(c, "days", 7)
	if days < 1 || days > 90 {
		days = 7
	}
	limit := h.parseIntQuery(c, "limit", 0)
	return time.Now().AddDate(0, 0, -days), limit
}

func (h *AssignmentHandler) parseAssignmentFilters(c *gin.Context) repositories.AssignmentFilters {
	filters := repositories.AssignmentFilters{
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

	if status := c.Query("status"); status != "" {
		s := models.AssignmentStatus(status)
		filters.Status = &s
	}
	if assigneeID := c.Query("assignee_id"); assigneeID != "" {
		filters.AssigneeID = &assigneeID
	}
	if assignerID := c.Query("assigner_id"); assignerID != "" {
		filters.AssignerID = &assignerID
	}
	if templateID := h.parseIntQuery(c, "template_id", 0); templateID > 0 {
		tid := uint(templateID)
		filters.TemplateID = &tid
	}
	if saved := c.Query("saved"); saved != "" {
		v := saved == "true"
		filters.Saved = &v
	}

	return filters
}
