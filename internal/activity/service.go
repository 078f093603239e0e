package activity

import (
	"context"
	"log"

	"itops-backend/internal/platform/apierr"
)

const (
	defaultLimit = 50
	maxLimit     = 200
	migrateBatch = 500
)

type repository interface {
	List(ctx context.Context, f Filter, p Page) ([]Entry, int64, error)
	legacyBatch(ctx context.Context, after string, limit int) ([]Entry, error)
	backfill(ctx context.Context, id, status, zone string) error
}

type Service struct {
	repo repository
}

func NewService(store *Store) *Service { return &Service{repo: store} }

func (s *Service) List(ctx context.Context, f Filter, p Page) (ListResult, error) {
	if f.Action != "" && !f.Action.Valid() {
		return ListResult{}, apierr.Invalid("invalid request").WithDetail("unknown action %q", f.Action)
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return ListResult{}, apierr.Invalid("invalid request").WithDetail("from must be before to")
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return ListResult{}, err
	}
	next := p.Offset + p.Limit
	if next >= int(total) {
		next = 0
	}
	return ListResult{Items: items, Total: total, NextOffset: next}, nil
}

type MigrateReport struct {
	Scanned int
	Updated int
}

// MigrateLegacy fills status and zone on old repair entries from their
// details text. Other actions carry free text typed by users and are never
// touched. Rows with nothing parseable are left as they are. Safe to run more
// than once.
func (s *Service) MigrateLegacy(ctx context.Context) (MigrateReport, error) {
	var rep MigrateReport
	after := ""
	for {
		batch, err := s.repo.legacyBatch(ctx, after, migrateBatch)
		if err != nil {
			return rep, err
		}
		if len(batch) == 0 {
			break
		}
		for _, e := range batch {
			after = e.ID
			if e.Action != ActionRepair && e.Action != ActionRepairUpdate {
				continue
			}
			rep.Scanned++

			status, zone := ParseLegacyDetails(e.Details)
			if e.Status != "" {
				status = ""
			}
			if e.Zone != "" {
				zone = ""
			}
			if status == "" && zone == "" {
				continue
			}
			if err := s.repo.backfill(ctx, e.ID, status, zone); err != nil {
				return rep, err
			}
			rep.Updated++
		}
	}
	log.Printf("[INFO] legacy activities: scanned=%d updated=%d", rep.Scanned, rep.Updated)
	return rep, nil
}
