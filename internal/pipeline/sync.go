package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SyncResult reports what Sync changed.
type SyncResult struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Reindexed int `json:"reindexed"`
	Skipped   int `json:"skipped"`
}

// Sync reconciles the catalog and question index with the extraction folders on disk:
// folders missing from the catalog are added, catalog entries without a folder are
// removed, and catalogued extractions whose indexed question count differs from their
// questions file are indexed again. Folders whose questions cannot be read are skipped.
func (p *Pipeline) Sync(ctx context.Context) (*SyncResult, error) {
	res := &SyncResult{}
	if p.catalog == nil {
		return res, nil
	}
	onDisk, err := p.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}
	catalogIDs, err := p.catalog.ListExtractionIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	known := make(map[string]bool, len(catalogIDs))
	for _, id := range catalogIDs {
		known[id] = true
	}

	present := make(map[string]bool, len(onDisk))
	for _, m := range onDisk {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id := m.ExtractionID
		present[id] = true
		indexed := uint64(0)
		if known[id] {
			if p.index == nil {
				continue
			}
			indexed, err = p.index.ExtractionDocCount(ctx, id)
			if err != nil {
				return res, fmt.Errorf("failed to count indexed questions of %s: %w", id, err)
			}
			if indexed == uint64(m.TotalQuestions) {
				continue
			}
		}
		questions, err := p.store.LoadQuestions(id)
		if err != nil {
			p.logger.Warn("skipping extraction during sync", zap.String("extraction_id", id), zap.Error(err))
			res.Skipped++
			continue
		}
		if known[id] && indexed == uint64(len(questions)) {
			continue
		}
		if err := p.record(ctx, m, questions); err != nil {
			return res, err
		}
		if known[id] {
			p.logger.Debug("reindexed extraction",
				zap.String("extraction_id", id),
				zap.Uint64("indexed", indexed),
				zap.Int("questions", len(questions)),
			)
			res.Reindexed++
		} else {
			res.Added++
		}
	}

	for _, id := range catalogIDs {
		if present[id] {
			continue
		}
		if err := p.forget(ctx, id); err != nil {
			return res, err
		}
		res.Removed++
	}

	p.logger.Info("catalog synced",
		zap.Int("added", res.Added),
		zap.Int("removed", res.Removed),
		zap.Int("reindexed", res.Reindexed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Prune deletes every extraction created before cutoff and returns their IDs, oldest
// first. With dryRun, nothing is deleted.
func (p *Pipeline) Prune(ctx context.Context, cutoff time.Time, dryRun bool) ([]string, error) {
	all, err := p.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}
	var pruned []string
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if !m.Timestamp.Before(cutoff) {
			continue
		}
		if !dryRun {
			if err := p.Delete(ctx, m.ExtractionID); err != nil {
				return pruned, err
			}
		}
		pruned = append(pruned, m.ExtractionID)
	}
	return pruned, nil
}
