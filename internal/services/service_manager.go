package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quizdesk/assignment-service/internal/events"
	"github.com/quizdesk/assignment-service/internal/gateway"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/quizdesk/assignment-service/internal/validator"
	"gorm.io/gorm"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Logging configuration
	EnableDebugLogging bool
	EnableMetrics      bool
	LogLevel           slog.Level

	// Service-specific configurations
	Template   ServiceConfig
	Assignment ServiceConfig
	Grading    ServiceConfig
	Report     ServiceConfig
	Delivery   ServiceConfig

	// Global settings
	DefaultTimeout    time.Duration
	MaxRetries        int
	CircuitBreaker    bool
	RateLimitingRules map[string]RateLimit
}

type ServiceConfig struct {
	Enabled         bool
	CacheEnabled    bool
	CacheTTL        time.Duration
	ValidationLevel ValidationLevel
	AuditingEnabled bool
	MetricsEnabled  bool
}

type ValidationLevel int

const (
	ValidationBasic ValidationLevel = iota
	ValidationStrict
	ValidationFull
)

type RateLimit struct {
	RequestsPerMinute int
	BurstSize         int
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	gateway   gateway.Gateway
	config    ServiceManagerConfig

	// Service instances
	templateService   TemplateService
	assignmentService AssignmentService
	gradingService    GradingService
	reportService     ReportService
	deliveryService   DeliveryService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(
	db *gorm.DB,
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	gw gateway.Gateway,
	config ServiceManagerConfig,
) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		gateway:   gw,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(
	db *gorm.DB,
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	gw gateway.Gateway,
) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		EnableMetrics:      true,
		LogLevel:           slog.LevelInfo,

		Template: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        10 * time.Minute,
			ValidationLevel: ValidationFull,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Assignment: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false, // Real-time data
			CacheTTL:        0,
			ValidationLevel: ValidationStrict,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Grading: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Report: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        5 * time.Minute,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  true,
		},
		Delivery: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  true,
		},

		DefaultTimeout:    30 * time.Second,
		MaxRetries:        3,
		CircuitBreaker:    true,
		RateLimitingRules: make(map[string]RateLimit),
	}

	return NewServiceManager(db, repo, logger, validator, publisher, gw, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices(ctx context.Context) error {
	// Grading and delivery come first; the assignment service depends on both
	if sm.config.Grading.Enabled {
		sm.gradingService = NewGradingService(sm.logger)
		sm.logger.Info("Grading service initialized")
	}

	if sm.config.Delivery.Enabled {
		sm.deliveryService = NewDeliveryService(sm.repo, sm.gateway, sm.logger)
		sm.logger.Info("Delivery service initialized")
	}

	if sm.config.Template.Enabled {
		sm.templateService = NewTemplateService(sm.repo, sm.db, sm.logger, sm.validator)
		sm.logger.Info("Template service initialized")
	}

	if sm.config.Assignment.Enabled {
		sm.assignmentService = NewAssignmentService(
			sm.repo, sm.db, sm.gradingService, sm.deliveryService, sm.publisher, sm.logger, sm.validator)
		sm.logger.Info("Assignment service initialized")
	}

	if sm.config.Report.Enabled {
		sm.reportService = NewReportService(sm.repo, sm.db, sm.gradingService, sm.logger)
		sm.logger.Info("Report service initialized")
	}

	return nil
}

// Service getters
func (sm *serviceManager) Template() TemplateService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Template.Enabled && sm.templateService != nil {
		return sm.templateService
	}

	panic("template service not enabled or not initialized")
}

func (sm *serviceManager) Assignment() AssignmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Assignment.Enabled && sm.assignmentService != nil {
		return sm.assignmentService
	}

	panic("assignment service not enabled or not initialized")
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Grading.Enabled && sm.gradingService != nil {
		return sm.gradingService
	}

	panic("grading service not enabled or not initialized")
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Report.Enabled && sm.reportService != nil {
		return sm.reportService
	}

	panic("report service not enabled or not initialized")
}

func (sm *serviceManager) Delivery() DeliveryService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Delivery.Enabled && sm.deliveryService != nil {
		return sm.deliveryService
	}

	panic("delivery service not enabled or not initialized")
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// ===== UTILITY METHODS =====

// GetConfig returns the service manager configuration
func (sm *serviceManager) GetConfig() ServiceManagerConfig {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.config
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}

// ===== CONFIGURATION VALIDATION =====

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.DefaultTimeout <= 0 {
		errors = append(errors, "default timeout must be positive")
	}

	if config.MaxRetries < 0 {
		errors = append(errors, "max retries cannot be negative")
	}

	if err := config.Template.validate("template"); err != nil {
		errors = append(errors, err.Error())
	}

	if err := config.Assignment.validate("assignment"); err != nil {
		errors = append(errors, err.Error())
	}

	if err := config.Grading.validate("grading"); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func (sc *ServiceConfig) validate(serviceName string) error {
	if sc.CacheTTL < 0 {
		return fmt.Errorf("%s: cache TTL cannot be negative", serviceName)
	}
	if sc.ValidationLevel < ValidationBasic || sc.ValidationLevel > ValidationFull {
		return fmt.Errorf("%s: invalid validation level", serviceName)
	}
	return nil
}

// ===== FACTORY FUNCTIONS =====

// CreateProductionServiceManager creates a service manager configured for production
func CreateProductionServiceManager(
	db *gorm.DB,
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	gw gateway.Gateway,
) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		EnableMetrics:      true,
		LogLevel:           slog.LevelInfo,

		Template: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        30 * time.Minute,
			ValidationLevel: ValidationFull,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Assignment: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false, // Real-time data
			CacheTTL:        0,
			ValidationLevel: ValidationStrict,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Grading: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationStrict,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Report: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        5 * time.Minute,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  true,
		},
		Delivery: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  true,
		},

		DefaultTimeout: 60 * time.Second,
		MaxRetries:     3,
		CircuitBreaker: true,
		RateLimitingRules: map[string]RateLimit{
			"template_create":   {RequestsPerMinute: 60, BurstSize: 10},
			"assignment_create": {RequestsPerMinute: 100, BurstSize: 20},
			"answer_submit":     {RequestsPerMinute: 200, BurstSize: 50},
		},
	}

	return NewServiceManager(db, repo, logger, validator, publisher, gw, config)
}

// CreateDevelopmentServiceManager creates a service manager configured for development
func CreateDevelopmentServiceManager(
	db *gorm.DB,
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	gw gateway.Gateway,
) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: true,
		EnableMetrics:      false,
		LogLevel:           slog.LevelDebug,

		Template: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},
		Assignment: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},
		Grading: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},
		Report: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},
		Delivery: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},

		DefaultTimeout:    10 * time.Second,
		MaxRetries:        1,
		CircuitBreaker:    false,
		RateLimitingRules: make(map[string]RateLimit),
	}

	return NewServiceManager(db, repo, logger, validator, publisher, gw, config)
}
