package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"telcosync/internal/logging"
	"telcosync/internal/services"
	"telcosync/internal/taxonomy"
	"telcosync/internal/warehouse"
)

// Store is the warehouse surface the runner needs.
type Store interface {
	CallsToClassify(ctx context.Context, afterID int64, limit int, reanalyze bool) ([]warehouse.ClassificationCandidate, error)
	UpsertClassification(ctx context.Context, c warehouse.Classification, analyzedAt time.Time) error
}

// Options controls one classification pass.
type Options struct {
	BatchSize int
	// Limit caps the calls examined in this pass; zero means no cap.
	Limit     int
	Reanalyze bool
}

// Result tallies a pass.
type Result struct {
	Examined   int
	Classified int
	DNC        int
	Failed     int
}

// Runner classifies calls in id order, batch by batch.
type Runner struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New builds a Runner.
func New(store Store, logger *slog.Logger) *Runner {
	return &Runner{store: store, logger: logging.NewComponentLogger(logger, "classifier"), now: time.Now}
}

// Run classifies every eligible call. A call whose row cannot be written is
// counted and skipped so the next pass retries it; the returned error then
// carries services.ErrClassification.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 500
	}
	var afterID int64
	for {
		size := batch
		if opts.Limit > 0 {
			left := opts.Limit - res.Examined
			if left <= 0 {
				break
			}
			size = min(size, left)
		}
		candidates, err := r.store.CallsToClassify(ctx, afterID, size, opts.Reanalyze)
		if err != nil {
			return res, err
		}
		if len(candidates) == 0 {
			break
		}
		for _, cand := range candidates {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			afterID = cand.CallID
			res.Examined++
			row := Build(cand)
			if err := r.store.UpsertClassification(ctx, row, r.now()); err != nil {
				res.Failed++
				logging.WarnWithContext(r.logger, "classification not stored", "classification_write_failed",
					logging.Int64("call_id", cand.CallID),
					logging.Error(err),
					logging.Impact("call will be retried on the next pass"),
				)
				continue
			}
			res.Classified++
			if row.IsDNC {
				res.DNC++
			}
		}
		if len(candidates) < size {
			break
		}
	}

	r.logger.Info("classification pass finished",
		logging.Int("examined", res.Examined),
		logging.Int("classified", res.Classified),
		logging.Int("dnc", res.DNC),
		logging.Int("failed", res.Failed),
		logging.Bool("reanalyze", opts.Reanalyze),
	)
	if res.Failed > 0 {
		return res, services.Wrap(services.ErrClassification, "classifier", "run",
			fmt.Sprintf("%d of %d calls not classified", res.Failed, res.Examined), nil)
	}
	return res, nil
}

// Build classifies one candidate into its warehouse row.
func Build(cand warehouse.ClassificationCandidate) warehouse.Classification {
	result := taxonomy.Classify(cand.Transcript, cand.Summary)
	v := result.Verdict
	sentiment := cand.Sentiment
	if sentiment == "" {
		sentiment = taxonomy.SentimentLabel(result.Flags)
	}
	flags := result.Flags
	if flags == nil {
		flags = []string{}
	}
	return warehouse.Classification{
		CallID:             cand.CallID,
		IsDNC:              v.IsDNC,
		DNCReason:          v.DNCReason,
		CallbackRequested:  v.CallbackRequested,
		Hostile:            v.Hostile,
		VoicemailFull:      v.VoicemailFull,
		RequiresEscalation: v.RequiresEscalation,
		ContactStatus:      v.ContactStatus,
		LeadStatus:         v.LeadStatus,
		LeadScore:          v.LeadScore,
		Sentiment:          sentiment,
		Summary:            cand.Summary,
		Flags:              flags,
		Method:             taxonomy.Method,
		TaxonomyVersion:    taxonomy.Version,
	}
}
