package worker

import (
	"context"
	"time"

	"github.com/chorus-insights/chorus/internal/cache"
	"github.com/chorus-insights/chorus/internal/llm"
	"github.com/chorus-insights/chorus/internal/model"
	"go.uber.org/zap"
)

const labelMaxBackoff = 10 * time.Second

// labelSleepFunc is the sleep function used between retries (injectable for tests)
var labelSleepFunc = sleepCtx

// LabelJob labels one quote through the external collaborator
type LabelJob struct {
	Quote    model.ScoredQuote
	Labeler  *BatchLabeler
	ClientID string
}

// Execute executes the label job
func (j *LabelJob) Execute(ctx context.Context) Result {
	label, err := j.Labeler.labelWithRetry(ctx, j.ClientID, j.Quote)
	return &LabelResult{Quote: j.Quote, Label: label, Error: err}
}

// LabelResult represents the result of a label job. A nil Label with a nil
// Error means the quote arrived pre-labeled and was passed through.
type LabelResult struct {
	Quote model.ScoredQuote
	Label *llm.QuoteLabel
	Error error
}

// GetError returns the error from the label result
func (r *LabelResult) GetError() error {
	return r.Error
}

// BatchLabeler pushes a client run's quotes through the labeling
// collaborator with a bounded worker pool, per-endpoint rate limiting,
// bounded retry with exponential backoff, and a label cache so re-runs skip
// paid calls. Quotes that exhaust their retries are returned with an error
// and excluded from aggregation by the caller, never retried indefinitely.
type BatchLabeler struct {
	provider    llm.Provider
	limiter     *Limiter
	cache       cache.Cache
	endpoint    string
	prompt      string
	concurrency int
	maxRetries  int
	log         *zap.Logger
}

// NewBatchLabeler creates a batch labeler. The cache may be nil to disable
// caching; the limiter may be nil to disable rate limiting.
func NewBatchLabeler(provider llm.Provider, limiter *Limiter, c cache.Cache, cfg model.ConcurrencyConfig, promptVersion string, log *zap.Logger) *BatchLabeler {
	if log == nil {
		log = zap.NewNop()
	}
	concurrency := cfg.LabelWorkers
	if concurrency <= 0 {
		concurrency = 1
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &BatchLabeler{
		provider:    provider,
		limiter:     limiter,
		cache:       c,
		endpoint:    provider.Name(),
		prompt:      promptVersion,
		concurrency: concurrency,
		maxRetries:  maxRetries,
		log:         log,
	}
}

// LabelQuotes labels all quotes concurrently and returns the per-quote
// results in no particular order
func (b *BatchLabeler) LabelQuotes(ctx context.Context, clientID string, quotes []model.ScoredQuote) []*LabelResult {
	if len(quotes) == 0 {
		return []*LabelResult{}
	}

	jobs := make([]Job, len(quotes))
	for i, q := range quotes {
		jobs[i] = &LabelJob{Quote: q, Labeler: b, ClientID: clientID}
	}

	results := NewPool(b.concurrency).Run(ctx, jobs)

	labelResults := make([]*LabelResult, len(results))
	for i, r := range results {
		labelResults[i] = r.(*LabelResult)
	}
	return labelResults
}

// labelWithRetry fetches a label from cache or the provider, retrying
// transient failures with exponential backoff up to the configured bound
func (b *BatchLabeler) labelWithRetry(ctx context.Context, clientID string, q model.ScoredQuote) (*llm.QuoteLabel, error) {
	key := b.cacheKey(clientID, q)
	if b.cache != nil {
		if label, found := b.cache.Get(key); found {
			return label, nil
		}
	}

	req := llm.LabelRequest{Text: q.Text, Criterion: q.Criterion, DealStatus: q.DealStatus}

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx, b.endpoint); err != nil {
				return nil, err
			}
		}

		label, err := b.provider.LabelQuote(ctx, req)
		if err == nil {
			for _, c := range label.Corrections {
				b.log.Warn("label clamped at boundary",
					zap.String("quote_id", q.QuoteID),
					zap.String("correction", c))
			}
			if b.cache != nil {
				cached := *label
				cached.Corrections = nil // audit trail stays out of the cache
				_ = b.cache.Set(key, &cached, 0)
			}
			return label, nil
		}

		lastErr = err
		b.log.Warn("label attempt failed",
			zap.String("quote_id", q.QuoteID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < b.maxRetries {
			if err := labelSleepFunc(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
			if backoff > labelMaxBackoff {
				backoff = labelMaxBackoff
			}
		}
	}
	return nil, lastErr
}

// cacheKey hashes the inputs that determine a label so prompt or content
// changes invalidate the cache
func (b *BatchLabeler) cacheKey(clientID string, q model.ScoredQuote) string {
	return cache.CacheKey("label\x00" + clientID + "\x00" + q.Criterion + "\x00" + q.Text + "\x00" + b.prompt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
