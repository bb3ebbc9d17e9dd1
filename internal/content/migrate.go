package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-solutions/internal/questions"
)

// MigrationReport summarises a legacy payload migration run.
type MigrationReport struct {
	Scanned  int
	Migrated int
	Failed   []string
}

// MigrateLegacyQuestions rewrites every question still stored in the legacy
// {"questionContent": ...} shape into the canonical shape. With dryRun set it
// only counts. Rows that fail to migrate are listed in the report and left
// untouched.
func MigrateLegacyQuestions(ctx context.Context, store Store, batchSize int, dryRun bool) (MigrationReport, error) {
	if batchSize <= 0 {
		batchSize = MaxLimit
	}

	var report MigrationReport
	after := ""
	for {
		batch, err := store.QuestionBatch(ctx, after, batchSize)
		if err != nil {
			return report, fmt.Errorf("load questions after %q: %w", after, err)
		}
		if len(batch) == 0 {
			return report, nil
		}

		for _, q := range batch {
			report.Scanned++
			if !questions.IsLegacy(q.Content) {
				continue
			}
			if err := migrateOne(ctx, store, q, dryRun); err != nil {
				slog.Warn("legacy migration failed", "question_id", q.ID, "error", err)
				report.Failed = append(report.Failed, q.ID)
				continue
			}
			report.Migrated++
		}
		after = batch[len(batch)-1].ID
	}
}

func migrateOne(ctx context.Context, store Store, q Question, dryRun bool) error {
	rewritten, _, err := questions.MigrateLegacy(q.Content)
	if err != nil {
		return err
	}
	canonical, _, err := questions.CanonicalQuestion(q.Type, rewritten)
	if err != nil {
		return err
	}
	if dryRun {
		return nil
	}
	q.Content = canonical
	_, err = store.UpdateQuestion(ctx, q)
	return err
}
