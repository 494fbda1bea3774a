package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"item-batch-service/internal/domain/entity"
	domainErrors "item-batch-service/internal/domain/errors"
)

// ProcessOutcome is the single result delivered by a batch run.
// Err is set only when the run itself could not be carried out; per-item
// failures are logged and left out of Items.
type ProcessOutcome struct {
	Items []*entity.Item
	Err   error
}

// runState is the lifecycle position of a batch run
type runState string

const (
	runStateIdle         runState = "idle"
	runStatePartitioning runState = "partitioning"
	runStateDispatched   runState = "dispatched"
	runStateJoining      runState = "joining"
	runStateCompleted    runState = "completed"
)

// chunkResult is owned by exactly one worker until the join barrier
type chunkResult struct {
	items   []*entity.Item
	failed  int
	skipped int
}

type batchRun struct {
	state  runState
	logger zerolog.Logger
}

func (r *batchRun) advance(next runState) {
	r.logger.Debug().Str("from", string(r.state)).Str("to", string(next)).Msg("batch run state change")
	r.state = next
}

func (u *itemUsecase) ProcessItems(ctx context.Context) ([]*entity.Item, error) {
	outcome := <-u.ProcessItemsAsync(ctx)
	return outcome.Items, outcome.Err
}

func (u *itemUsecase) ProcessItemsAsync(ctx context.Context) <-chan ProcessOutcome {
	out := make(chan ProcessOutcome, 1)
	run := &batchRun{state: runStateIdle, logger: u.logger}

	run.advance(runStatePartitioning)
	ids, err := u.itemRepo.FindAllIDs(ctx)
	if err != nil {
		run.advance(runStateCompleted)
		out <- ProcessOutcome{Err: fmt.Errorf("failed to list item ids: %w", err)}
		close(out)
		return out
	}

	// 空の場合はワーカーを作らずに完了済みの結果を返す
	if len(ids) == 0 {
		run.advance(runStateCompleted)
		out <- ProcessOutcome{Items: []*entity.Item{}}
		close(out)
		return out
	}

	chunks := Partition(ids, u.parallelismHint())

	go func() {
		defer close(out)
		items, err := u.runBatch(ctx, run, chunks)
		out <- ProcessOutcome{Items: items, Err: err}
	}()

	return out
}

// runBatch fans the ids out to one worker per chunk and joins them.
// The worker pool lives only for the duration of this call.
func (u *itemUsecase) runBatch(ctx context.Context, run *batchRun, chunks [][]int64) ([]*entity.Item, error) {
	started := time.Now()

	results := make([]chunkResult, len(chunks))
	var g errgroup.Group
	g.SetLimit(len(chunks))

	run.advance(runStateDispatched)
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := u.processChunk(ctx, i, chunk)
			results[i] = res
			return err
		})
	}

	run.advance(runStateJoining)
	if err := g.Wait(); err != nil {
		run.advance(runStateCompleted)
		return nil, fmt.Errorf("batch run failed: %w", err)
	}

	listed, total, failed, skipped := 0, 0, 0, 0
	for i, res := range results {
		listed += len(chunks[i])
		total += len(res.items)
		failed += res.failed
		skipped += res.skipped
	}

	processed := make([]*entity.Item, 0, total)
	for _, res := range results {
		processed = append(processed, res.items...)
	}

	run.advance(runStateCompleted)
	u.logger.Info().
		Int("ids", listed).
		Int("chunks", len(chunks)).
		Int("processed", len(processed)).
		Int("failed", failed).
		Int("skipped", skipped).
		Bool("cancelled", ctx.Err() != nil).
		Dur("elapsed", time.Since(started)).
		Msg("batch run completed")

	return processed, nil
}

// processChunk handles ids strictly in order. Per-item faults are logged and
// skipped; cancellation stops the loop and keeps what was already processed.
func (u *itemUsecase) processChunk(ctx context.Context, index int, ids []int64) (res chunkResult, err error) {
	logger := u.logger.With().Int("chunk", index).Logger()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chunk %d worker panicked: %v", index, r)
		}
	}()

	for _, id := range ids {
		if ctx.Err() != nil {
			logger.Debug().Int64("item_id", id).Msg("batch run cancelled, stopping chunk")
			break
		}

		item, itemErr := u.processItem(ctx, id)
		if itemErr != nil {
			if ctx.Err() != nil && isContextError(itemErr) {
				logger.Debug().Int64("item_id", id).Msg("batch run cancelled, stopping chunk")
				break
			}
			res.failed++
			logger.Warn().Err(itemErr).Int64("item_id", id).Msg("failed to process item")
			continue
		}
		if item == nil {
			res.skipped++
			continue
		}

		res.items = append(res.items, item)
	}

	return res, nil
}

// processItem returns (nil, nil) when the item no longer exists
func (u *itemUsecase) processItem(ctx context.Context, id int64) (processed *entity.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			processed = nil
			err = fmt.Errorf("panic while processing item %d: %v", id, r)
		}
	}()

	if u.itemDelay > 0 {
		timer := time.NewTimer(u.itemDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	item, err := u.itemRepo.FindByID(ctx, id)
	if err != nil {
		if domainErrors.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve item: %w", err)
	}
	if item == nil {
		return nil, nil
	}

	item.MarkProcessed()

	saved, err := u.itemRepo.Save(ctx, item)
	if err != nil {
		// 取得後に削除された場合もスキップ扱い
		if domainErrors.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to save item: %w", err)
	}
	if saved == nil {
		saved = item
	}

	return saved, nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
