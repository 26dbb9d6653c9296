package usecase

import "context"

// SummaryCache holds recently computed per-chat summaries. Implemented by
// the Redis stats cache; use cases only see this narrow view so the layer
// stays free of infra imports.
type SummaryCache interface {
	Get(ctx context.Context, chatID int64, kind string, dst interface{}) (bool, error)
	Put(ctx context.Context, chatID int64, kind string, v interface{}) error
	Invalidate(ctx context.Context, chatID int64) error
}
