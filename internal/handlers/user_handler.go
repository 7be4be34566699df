package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/quizdesk/assignment-service/internal/utils"
)

// UserHandler exposes the directory reads an assigner needs to pick an
// assignee: who exists, and whether a quiz can actually reach them.
type UserHandler struct {
	BaseHandler
	userRepo repositories.UserRepository
}

func NewUserHandler(userRepo repositories.UserRepository, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userRepo:    userRepo,
	}
}

// AssigneeView is the picker-facing projection of a directory user.
// DeliveryReady tells the assigner up front whether the invitation will
// land in a chat or fall back to in-app only.
type AssigneeView struct {
	ID            string  `json:"id"`
	FullName      string  `json:"full_name"`
	Email         string  `json:"email"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	DeliveryReady bool    `json:"delivery_ready"`
}

type AssigneeListResponse struct {
	Assignees []AssigneeView `json:"assignees"`
	Total     int64          `json:"total"`
	Page      int            `json:"page"`
	Size      int            `json:"size"`
}

// ListAssignees lists directory users for the assignee picker
// @Summary List assignees
// @Description Get a paginated list of users a quiz can be assigned to
// @Tags users
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Param q query string false "Filter by name or email"
// @Success 200 {object} AssigneeListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users [get]
func (h *UserHandler) ListAssignees(c *gin.Context) {
	if _, ok := h.getUserID(c); !ok {
		return
	}

	h.LogRequest(c, "Listing assignees")

	filters, page := h.parseAssigneeFilters(c)
	users, total, err := h.userRepo.List(c.Request.Context(), filters)
	if err != nil {
		h.LogError(c, err, "Failed to list assignees")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to list assignees",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AssigneeListResponse{
		Assignees: h.toAssigneeViews(c, users),
		Total:     total,
		Page:      page,
		Size:      filters.Limit,
	})
}

// SearchAssignees searches the directory by name or email
// @Summary Search assignees
// @Description Search users a quiz can be assigned to
// @Tags users
// @Produce json
// @Param q query string true "Search query"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} AssigneeListResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/search [get]
func (h *UserHandler) SearchAssignees(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Search query parameter 'q' is required",
		})
		return
	}

	if _, ok := h.getUserID(c); !ok {
		return
	}

	h.LogRequest(c, "Searching assignees", "query", query)

	filters, page := h.parseAssigneeFilters(c)
	users, total, err := h.userRepo.Search(c.Request.Context(), query, filters)
	if err != nil {
		h.LogError(c, err, "Failed to search assignees")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to search assignees",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AssigneeListResponse{
		Assignees: h.toAssigneeViews(c, users),
		Total:     total,
		Page:      page,
		Size:      filters.Limit,
	})
}

// GetAssignee retrieves one directory user by ID
// @Summary Get assignee by ID
// @Description Get a single user with their delivery readiness
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} AssigneeView
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /users/{id} [get]
func (h *UserHandler) GetAssignee(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "User ID is required",
		})
		return
	}

	if _, ok := h.getUserID(c); !ok {
		return
	}

	h.LogRequest(c, "Getting assignee", "target_id", userID)

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.LogError(c, err, "Failed to get assignee")
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
			Details: err.Error(),
		})
		return
	}

	views := h.toAssigneeViews(c, []*models.User{user})
	c.JSON(http.StatusOK, views[0])
}

// ===== HELPER METHODS =====

func (h *UserHandler) parseAssigneeFilters(c *gin.Context) (repositories.UserFilters, int) {
	page := h.parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := h.parseIntQuery(c, "size", 10)
	if size < 1 || size > 100 {
		size = 10
	}

	return repositories.UserFilters{
		Limit:  size,
		Offset: (page - 1) * size,
		Query:  c.Query("q"),
	}, page
}

// toAssigneeViews projects directory users into picker rows. Chat lookups are
// best-effort; an unresolvable target just shows as not delivery-ready.
func (h *UserHandler) toAssigneeViews(c *gin.Context, users []*models.User) []AssigneeView {
	views := make([]AssigneeView, 0, len(users))
	for _, user := range users {
		view := AssigneeView{
			ID:        user.ID,
			FullName:  user.FullName,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
		}
		if chatID, err := h.userRepo.GetChatID(c.Request.Context(), user.ID); err == nil {
			view.DeliveryReady = chatID != ""
		}
		views = append(views, view)
	}
	return views
}
