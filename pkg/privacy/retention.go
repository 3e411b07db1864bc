package privacy

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
)

// Policy holds the retention windows applied during export and by the
// blob sweeper.
type Policy struct {
	EvidenceRetentionDays int
	PayloadRetentionDays  int
}

// DefaultPolicy mirrors the documented defaults (30/90 days).
func DefaultPolicy() Policy {
	return Policy{EvidenceRetentionDays: 30, PayloadRetentionDays: 90}
}

// ApplyEvidenceRetention drops evidence created before the retention
// window. The store is untouched; pruning happens on the export snapshot.
func (p Policy) ApplyEvidenceRetention(items []*contracts.EvidenceItem, now time.Time) ([]*contracts.EvidenceItem, int) {
	cutoff := now.AddDate(0, 0, -p.EvidenceRetentionDays)
	kept := make([]*contracts.EvidenceItem, 0, len(items))
	pruned := 0
	for _, item := range items {
		if item.CreatedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, item)
	}
	return kept, pruned
}

// ApplyPayloadRetention blanks payload blobs on history entries older
// than the payload window. Entry metadata stays; only the payload goes.
// Entries are copied, never mutated in place.
func (p Policy) ApplyPayloadRetention(entries []*contracts.IntelligenceEntry, now time.Time) ([]*contracts.IntelligenceEntry, int) {
	cutoff := now.AddDate(0, 0, -p.PayloadRetentionDays)
	out := make([]*contracts.IntelligenceEntry, len(entries))
	blanked := 0
	for i, e := range entries {
		if e.ComputedAt.Before(cutoff) && e.Payload != nil {
			clone := *e
			clone.Payload = nil
			out[i] = &clone
			blanked++
			continue
		}
		out[i] = e
	}
	return out, blanked
}

// AttachmentLister is the slice of the store the sweeper needs. Storage
// paths are root-relative and slash-separated.
type AttachmentLister interface {
	ListDeletedAttachmentsBefore(ctx context.Context, cutoff time.Time) ([]*contracts.Attachment, error)
	AttachmentExists(ctx context.Context, storagePath string) (bool, error)
}

// Sweeper purges attachment blobs left behind by soft deletion. It runs
// daily (and on demand via the sweep subcommand) and logs the purge count.
type Sweeper struct {
	store       AttachmentLister
	uploadsRoot string
	policy      Policy
	logger      *slog.Logger
}

// NewSweeper builds a retention sweeper over the uploads root.
func NewSweeper(store AttachmentLister, uploadsRoot string, policy Policy) *Sweeper {
	return &Sweeper{
		store:       store,
		uploadsRoot: uploadsRoot,
		policy:      policy,
		logger:      slog.Default().With("component", "retention_sweeper"),
	}
}

// Sweep removes blobs for attachments soft-deleted before the evidence
// retention window, plus orphaned files with no metadata row. Returns the
// number of blobs purged.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -s.policy.EvidenceRetentionDays)

	purged := 0
	expired, err := s.store.ListDeletedAttachmentsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, att := range expired {
		path := filepath.Join(s.uploadsRoot, filepath.FromSlash(att.StoragePath))
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			s.logger.Warn("failed to purge blob", "path", att.StoragePath, "error", err)
			continue
		}
		purged++
	}

	orphans, err := s.sweepOrphans(ctx)
	if err != nil {
		s.logger.Warn("orphan sweep incomplete", "error", err)
	}
	purged += orphans

	s.logger.Info("retention sweep complete", "blobs_purged", purged)
	return purged, nil
}

// sweepOrphans removes files under the uploads root that no attachment
// row references.
func (s *Sweeper) sweepOrphans(ctx context.Context) (int, error) {
	purged := 0
	err := filepath.WalkDir(s.uploadsRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.uploadsRoot, path)
		if err != nil {
			return err
		}
		known, err := s.store.AttachmentExists(ctx, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		if !known {
			if err := os.Remove(path); err == nil {
				purged++
			}
		}
		return nil
	})
	if os.IsNotExist(err) {
		return purged, nil
	}
	return purged, err
}

// RunDaily blocks, sweeping once per day until the context is cancelled.
func (s *Sweeper) RunDaily(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
				s.logger.Error("daily sweep failed", "error", err)
			}
		}
	}
}
