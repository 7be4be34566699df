package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// BatchInvalidate invalidates multiple patterns in batch
func BatchInvalidate(ctx context.Context, helper *CacheHelper, patterns []string) error {
	var lastErr error
	for _, pattern := range patterns {
		if err := helper.InvalidatePattern(ctx, pattern); err != nil {
			lastErr = err
			slog.ErrorContext(ctx, "Failed to invalidate pattern in batch",
				"error", err,
				"pattern", pattern)
		}
	}
	return lastErr
}

// InvalidateTemplateCache invalidates all template-related caches using pipeline
func InvalidateTemplateCache(ctx context.Context, cm *CacheManager, templateID uint, creatorID string) {
	// Delete specific keys using single call
	SafeDelete(ctx, cm.Template,
		fmt.Sprintf("id:%d", templateID),
		fmt.Sprintf("details:%d", templateID))

	// Invalidate patterns
	SafeInvalidatePattern(ctx, cm.Template, fmt.Sprintf("creator:%s:*", creatorID))
	SafeInvalidatePattern(ctx, cm.Template, "list:*")
	SafeInvalidatePattern(ctx, cm.Question, fmt.Sprintf("template:%d:*", templateID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("template:%d:*", templateID))
}
