package analysis

import "context"

// Completion is one single-turn chat request.
type Completion struct {
	SystemPrompt string
	UserContent  string
	Config       ModelConfig
}

// CompletionResult is the normalized provider answer. Text may be empty;
// the dispatcher decides what an empty answer means.
type CompletionResult struct {
	Text  string
	Usage Usage
}

// Provider port, one implementation per family.
type Provider interface {
	Complete(ctx context.Context, c Completion) (CompletionResult, error)
}

// Repository port for analysis history
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Paginate(ctx context.Context, userID string, page, pageSize int) ([]*Record, error)
}

// ArchiveStore port for full report archival.
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
