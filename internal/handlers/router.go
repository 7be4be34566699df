package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/quizdesk/assignment-service/internal/config"
	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/quizdesk/assignment-service/internal/services"
	"github.com/quizdesk/assignment-service/internal/utils"
	"github.com/quizdesk/assignment-service/internal/validator"
)

type HandlerManager struct {
	templateHandler   *TemplateHandler
	assignmentHandler *AssignmentHandler
	userHandler       *UserHandler
	authMiddleware    *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		templateHandler:   NewTemplateHandler(serviceManager.Template(), validator, logger),
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), serviceManager.Report(), validator, logger),
		userHandler:       NewUserHandler(userRepo, logger),
		authMiddleware:    authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Template routes
		templates := v1.Group("/templates")
		{
			// Create/modify templates - Editors and Admins only
			templates.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin), hm.templateHandler.CreateTemplate)
			templates.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin), hm.templateHandler.UpdateTemplate)
			templates.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin), hm.templateHandler.DeleteTemplate)

			// View templates - All authenticated users
			templates.GET("", hm.templateHandler.ListTemplates)
			templates.GET("/search", hm.templateHandler.SearchTemplates)
			templates.GET("/me", hm.templateHandler.GetMyTemplates)
			templates.GET("/:id", hm.templateHandler.GetTemplate)
			templates.GET("/:id/details", hm.templateHandler.GetTemplateWithQuestions)

			// Stats - Editors and Admins only
			templates.GET("/:id/stats", hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin), hm.templateHandler.GetTemplateStats)
		}

		// Assignment routes
		assignments := v1.Group("/assignments")
		{
			// Assigning and archiving - Editors and Admins only
			assignments.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin), hm.assignmentHandler.CreateAssignment)
			assignments.POST("/:id/cancel", hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin), hm.assignmentHandler.CancelAssignment)
			assignments.POST("/:id/save", hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin), hm.assignmentHandler.SaveAssignment)

			// Taking an assignment - the assignee
			assignments.POST("/:id/start", hm.assignmentHandler.StartAssignment)
			assignments.POST("/:id/answer", hm.assignmentHandler.SubmitAnswer)
			assignments.POST("/:id/toggle", hm.assignmentHandler.ToggleSelection)
			assignments.GET("/:id/question", hm.assignmentHandler.GetCurrentQuestion)

			// Views
			assignments.GET("", hm.assignmentHandler.ListAssignments)
			assignments.GET("/me/active", hm.assignmentHandler.GetMyAssignments)
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.GET("/stats/:assignee_id", hm.assignmentHandler.GetAssigneeStats)

			// Reports
			assignments.GET("/reports/recent", hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin), hm.assignmentHandler.ListRecentReports)
			assignments.GET("/reports/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin), hm.assignmentHandler.ExportReports)
			assignments.GET("/:id/report", hm.assignmentHandler.GetReport)
		}

		// User routes (for picking assignees)
		users := v1.Group("/users")
		{
			users.GET("", hm.userHandler.ListAssignees)
			users.GET("/search", hm.userHandler.SearchAssignees)
			users.GET("/:id", hm.userHandler.GetAssignee)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "assignment-service",
		})
	})
}
