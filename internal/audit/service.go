package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/reservehq/reserve-personnel/internal"
)

const (
	maxPageLimit   = 100
	recordTimeout  = 5 * time.Second
	csvTimestamp   = time.RFC3339
	resourceSystem = "audit_log"
)

// Recorder is the write side of the trail. Record never returns an error:
// audit failures are surfaced to operators through logs, not to callers.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Repository defines the data access methods for audit entries.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	Search(ctx context.Context, filter Filter, limit, offset int) ([]*Entry, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service struct {
	repo          Repository
	logger        *slog.Logger
	retentionDays int
}

func NewService(repo Repository, logger *slog.Logger, retentionDays int) *Service {
	return &Service{
		repo:          repo,
		logger:        logger,
		retentionDays: retentionDays,
	}
}

// Record appends an entry without blocking the caller. The write runs on its
// own context so a cancelled request cannot abort it, and callers are expected
// to invoke Record only after their primary transition has committed.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if !entry.Action.Valid() {
		s.logger.Error("audit entry dropped: unknown action",
			"action", entry.Action,
			"resource", entry.Resource,
			"actor_id", entry.ActorID)
		return
	}

	meta := internal.ClientMetaFromContext(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = meta.IPAddress
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}

	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := s.repo.Insert(writeCtx, &entry); err != nil {
			s.logger.Error("audit write failed",
				"error", err,
				"action", entry.Action,
				"resource", entry.Resource,
				"resource_id", entry.ResourceID,
				"actor_id", entry.ActorID)
		}
	}()
}

// Query returns a newest-first page of entries. Page and limit must be
// positive and limit may not exceed 100; out-of-range values are rejected
// rather than clamped.
func (s *Service) Query(ctx context.Context, filter Filter, page, limit int) (*Page, error) {
	if err := validatePaging(page, limit); err != nil {
		return nil, err
	}
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, internal.NewValidationError(
			fmt.Sprintf("unknown action filter %q", filter.Action), internal.ErrCodeValidationFailed)
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, internal.NewValidationError("endDate must not be before startDate", internal.ErrCodeInvalidDateRange)
	}

	offset := (page - 1) * limit
	entries, total, err := s.repo.Search(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		return nil, internal.NewInternalError("failed to query audit logs", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &Page{
		Logs: entries,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// ExportCSV streams the filtered trail as RFC 4180 CSV, newest first.
func (s *Service) ExportCSV(ctx context.Context, filter Filter, w io.Writer) error {
	if filter.Action != "" && !filter.Action.Valid() {
		return internal.NewValidationError(
			fmt.Sprintf("unknown action filter %q", filter.Action), internal.ErrCodeValidationFailed)
	}

	// Pin the window to the export start. Entries recorded while batches are
	// being read sort ahead of everything newest-first and would shift the
	// offsets, duplicating or dropping a row at a batch boundary.
	if filter.EndDate == nil {
		snapshot := time.Now().UTC()
		filter.EndDate = &snapshot
	}

	cw := csv.NewWriter(w)
	header := []string{"timestamp", "actor_id", "actor_name", "actor_role", "action", "resource", "resource_id", "details", "ip_address", "user_agent"}
	if err := cw.Write(header); err != nil {
		return internal.NewInternalError("failed to write csv header", err)
	}

	const batchSize = maxPageLimit
	for offset := 0; ; offset += batchSize {
		entries, _, err := s.repo.Search(ctx, filter, batchSize, offset)
		if err != nil {
			s.logger.Error("audit export failed", "error", err, "offset", offset)
			return internal.NewInternalError("failed to export audit logs", err)
		}

		for _, e := range entries {
			record := []string{
				e.Timestamp.Format(csvTimestamp),
				strconv.FormatInt(e.ActorID, 10),
				e.ActorName,
				e.ActorRole,
				string(e.Action),
				e.Resource,
				e.ResourceID,
				e.Details,
				e.IPAddress,
				e.UserAgent,
			}
			if err := cw.Write(record); err != nil {
				return internal.NewInternalError("failed to write csv record", err)
			}
		}

		if len(entries) < batchSize {
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return internal.NewInternalError("failed to flush csv", err)
	}
	return nil
}

// Purge deletes entries older than the cutoff and records the purge itself.
// The retention window is a floor: recent entries are never purgeable.
func (s *Service) Purge(ctx context.Context, actor internal.Actor, cutoff time.Time) (int64, error) {
	if s.retentionDays > 0 {
		earliestAllowed := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
		if cutoff.After(earliestAllowed) {
			return 0, internal.NewValidationError(
				fmt.Sprintf("cutoff must be at least %d days in the past", s.retentionDays),
				internal.ErrCodeInvalidDateRange)
		}
	}

	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("audit purge failed", "error", err, "cutoff", cutoff)
		return 0, internal.NewInternalError("failed to purge audit logs", err)
	}

	s.logger.Info("audit logs purged",
		"deleted", deleted,
		"cutoff", cutoff,
		"actor_id", actor.ID)

	s.Record(ctx, Entry{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    ActionSystem,
		Resource:  resourceSystem,
		Details:   fmt.Sprintf("purged %d audit entries older than %s", deleted, cutoff.Format(csvTimestamp)),
	})

	return deleted, nil
}

func validatePaging(page, limit int) error {
	if page < 1 {
		return internal.NewValidationError("page must be a positive integer", internal.ErrCodeInvalidPaging)
	}
	if limit < 1 {
		return internal.NewValidationError("limit must be a positive integer", internal.ErrCodeInvalidPaging)
	}
	if limit > maxPageLimit {
		return internal.NewValidationError(
			fmt.Sprintf("limit must not exceed %d", maxPageLimit), internal.ErrCodeInvalidPaging)
	}
	return nil
}
