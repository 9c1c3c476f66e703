package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tetelio/asset-pipeline/models"
	"github.com/tetelio/asset-pipeline/timing"
)

var ErrRunNotFound = errors.New("timing run not found")

// TimingRepository persists timing records grouped by run.
type TimingRepository struct {
	db *gorm.DB
}

func NewTimingRepository(db *gorm.DB) *TimingRepository {
	return &TimingRepository{db: db}
}

// SaveRun stores every span of records under runID in one transaction.
func (r *TimingRepository) SaveRun(ctx context.Context, runID string, records timing.Records) error {
	rows := make([]models.StageTiming, 0, len(records)*len(timing.Stages))
	for _, index := range records.Indexes() {
		for stage, span := range records[index] {
			rows = append(rows, models.StageTiming{
				RunID:     runID,
				FileIndex: index,
				Stage:     string(stage),
				Start:     span.Start,
				End:       span.End,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save timing run %s: %w", runID, err)
	}

	zlog.Sugar().Debugf("Saved %d timing rows for run %s", len(rows), runID)
	return nil
}

// LoadRun returns the records stored under runID.
func (r *TimingRepository) LoadRun(ctx context.Context, runID string) (timing.Records, error) {
	var rows []models.StageTiming
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("file_index").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load timing run %s: %w", runID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	records := make(timing.Records)
	for _, row := range rows {
		spans, ok := records[row.FileIndex]
		if !ok {
			spans = make(map[timing.Stage]timing.Span)
			records[row.FileIndex] = spans
		}
		spans[timing.Stage(row.Stage)] = timing.Span{Start: row.Start, End: row.End}
	}
	return records, nil
}

// ListRuns summarizes every stored run, most recent first.
func (r *TimingRepository) ListRuns(ctx context.Context) ([]models.RunSummary, error) {
	var summaries []models.RunSummary
	err := r.db.WithContext(ctx).
		Model(&models.StageTiming{}).
		Select("run_id, COUNT(DISTINCT file_index) AS files, COUNT(*) AS records, MAX(\"end\") AS latest").
		Group("run_id").
		Order("MAX(created_at) DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list timing runs: %w", err)
	}
	return summaries, nil
}
