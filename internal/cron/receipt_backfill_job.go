package cron

import (
	"context"
	"fmt"

	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

const receiptBackfillBatch = 100

// ReceiptBackfillJobParams configure the receipt backfill job.
type ReceiptBackfillJobParams struct {
	Logger      *logger.Logger
	Settlements receiptBackfiller
	BatchSize   int
}

type receiptBackfiller interface {
	BackfillReceipts(ctx context.Context, limit int) (int, error)
}

// NewReceiptBackfillJob builds the job that attaches receipts to settled
// transactions the async issue path missed.
func NewReceiptBackfillJob(params ReceiptBackfillJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlements == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = receiptBackfillBatch
	}
	return &receiptBackfillJob{
		logg:        params.Logger,
		settlements: params.Settlements,
		batch:       batch,
	}, nil
}

type receiptBackfillJob struct {
	logg        *logger.Logger
	settlements receiptBackfiller
	batch       int
}

func (j *receiptBackfillJob) Name() string { return "receipt-backfill" }

func (j *receiptBackfillJob) Run(ctx context.Context) error {
	total := 0
	for {
		issued, err := j.settlements.BackfillReceipts(ctx, j.batch)
		total += issued
		if err != nil {
			return fmt.Errorf("backfill receipts: %w", err)
		}
		if issued < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": total})
	j.logg.Info(logCtx, "receipt backfill complete")
	return nil
}
