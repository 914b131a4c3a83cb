// Package audit compares stored image files with the references held by
// product records.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/asset"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"go.uber.org/zap"
)

// AgedStore is a store that can tell when an asset was written.
type AgedStore interface {
	asset.Store
	ModTime(ctx context.Context, ref string) (time.Time, error)
}

// RefLister returns every image reference held by a product record.
type RefLister interface {
	ListImageRefs(ctx context.Context) ([]string, error)
}

type Report struct {
	// Orphans are stored files no record points at.
	Orphans []string `json:"orphans"`
	// Dangling are owned references whose file is gone.
	Dangling []string `json:"dangling"`
	// External counts references the store does not own, e.g. legacy URLs.
	External int `json:"external"`
	Stored   int `json:"stored"`
	Records  int `json:"records"`
}

func (r *Report) Clean() bool {
	return len(r.Orphans) == 0 && len(r.Dangling) == 0
}

// Run never modifies anything.
func Run(ctx context.Context, store asset.Store, records RefLister) (*Report, error) {
	stored, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored assets: %w", err)
	}
	refs, err := records.ListImageRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list image references: %w", err)
	}

	report := &Report{
		Orphans:  []string{},
		Dangling: []string{},
		Stored:   len(stored),
		Records:  len(refs),
	}

	onDisk := make(map[string]bool, len(stored))
	for _, ref := range stored {
		onDisk[ref] = true
	}

	referenced := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if !store.Owns(ref) {
			report.External++
			continue
		}
		referenced[ref] = true
		if !onDisk[ref] {
			report.Dangling = append(report.Dangling, ref)
		}
	}

	for _, ref := range stored {
		if !referenced[ref] {
			report.Orphans = append(report.Orphans, ref)
		}
	}

	sort.Strings(report.Orphans)
	sort.Strings(report.Dangling)
	return report, nil
}

// Prune deletes the orphans in report that are at least minAge old and
// returns how many were removed. A create stores its file before inserting the
// record, so a younger orphan may still be claimed; those stay in
// report.Orphans. Records are never touched.
func Prune(ctx context.Context, store AgedStore, report *Report, minAge time.Duration, log logger.ZapLogger) (int, error) {
	removed := 0
	remaining := []string{}
	for i, ref := range report.Orphans {
		written, err := store.ModTime(ctx, ref)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			report.Orphans = append(remaining, report.Orphans[i:]...)
			return removed, fmt.Errorf("check orphan %s: %w", ref, err)
		}
		if age := time.Since(written); age < minAge {
			log.Info("orphan too recent, skipped", zap.String("image", ref), zap.Duration("age", age))
			remaining = append(remaining, ref)
			continue
		}
		if err := store.Delete(ctx, ref); err != nil {
			report.Orphans = append(remaining, report.Orphans[i:]...)
			return removed, fmt.Errorf("delete orphan %s: %w", ref, err)
		}
		log.Info("orphan removed", zap.String("image", ref))
		removed++
	}
	report.Orphans = remaining
	return removed, nil
}
