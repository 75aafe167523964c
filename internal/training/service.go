package training

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/audit"
	"github.com/reservehq/reserve-personnel/internal/auth"
)

const auditResource = "training"

// Repository defines the data access methods for trainings.
type Repository interface {
	Create(ctx context.Context, t *Training) error
	GetByID(ctx context.Context, id int64) (*Training, error)
	List(ctx context.Context) ([]*Training, error)
	Update(ctx context.Context, t *Training) error
	CreateCompletion(ctx context.Context, c *Completion) error
	ListCompletions(ctx context.Context, trainingID int64) ([]*Completion, error)
}

type Service struct {
	repo    Repository
	auditor audit.Recorder
	logger  *slog.Logger
}

func NewService(repo Repository, auditor audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, auditor: auditor, logger: logger}
}

func (s *Service) Create(ctx context.Context, actor *auth.User, dto CreateTrainingDTO) (*Training, error) {
	if !actor.HasPermission(auth.PermManageTrainings) {
		return nil, internal.ErrInsufficientPermission
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &Training{
		Title:         dto.Title,
		Description:   dto.Description,
		Category:      dto.Category,
		Location:      dto.Location,
		ScheduledAt:   dto.ScheduledAt,
		DurationHours: dto.DurationHours,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		s.logger.Error("failed to create training", "error", err)
		return nil, internal.NewInternalError("failed to create training", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionCreate,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(t.ID, 10),
		Details:    fmt.Sprintf("created training %q", t.Title),
	})

	return t, nil
}

func (s *Service) List(ctx context.Context, actor *auth.User) ([]*Training, error) {
	if !actor.HasPermission(auth.PermViewTrainings) {
		return nil, internal.ErrInsufficientPermission
	}

	trainings, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list trainings", "error", err)
		return nil, internal.NewInternalError("failed to list trainings", err)
	}
	return trainings, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.User, id int64, dto UpdateTrainingDTO) (*Training, error) {
	if !actor.HasPermission(auth.PermManageTrainings) {
		return nil, internal.ErrInsufficientPermission
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Title != nil {
		t.Title = *dto.Title
	}
	if dto.Description != nil {
		t.Description = *dto.Description
	}
	if dto.Category != nil {
		t.Category = *dto.Category
	}
	if dto.Location != nil {
		t.Location = *dto.Location
	}
	if dto.ScheduledAt != nil {
		t.ScheduledAt = *dto.ScheduledAt
	}
	if dto.DurationHours != nil {
		t.DurationHours = *dto.DurationHours
	}
	t.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, t); err != nil {
		s.logger.Error("failed to update training", "error", err, "training_id", id)
		return nil, internal.NewInternalError("failed to update training", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionUpdate,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(id, 10),
		Details:    fmt.Sprintf("updated training %q", t.Title),
	})

	return t, nil
}

// RecordCompletion registers one member's completion of a training.
func (s *Service) RecordCompletion(ctx context.Context, actor *auth.User, trainingID int64, dto RecordCompletionDTO) (*Completion, error) {
	if !actor.HasPermission(auth.PermRecordTraining) {
		return nil, internal.ErrInsufficientPermission
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, trainingID); err != nil {
		return nil, err
	}

	c := &Completion{
		TrainingID:  trainingID,
		PersonnelID: dto.PersonnelID,
		CompletedAt: time.Now().UTC(),
		Score:       dto.Score,
		Notes:       dto.Notes,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateCompletion(ctx, c); err != nil {
		s.logger.Error("failed to record completion", "error", err, "training_id", trainingID)
		return nil, internal.NewInternalError("failed to record completion", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionVerify,
		Resource:   "training_completion",
		ResourceID: strconv.FormatInt(c.ID, 10),
		Details: fmt.Sprintf("recorded completion of training %d for personnel %d",
			trainingID, dto.PersonnelID),
	})

	return c, nil
}

// ExportCSV writes the training roster with per-training completion counts.
func (s *Service) ExportCSV(ctx context.Context, actor *auth.User, w io.Writer) error {
	if !actor.HasPermission(auth.PermViewTrainings) {
		return internal.ErrInsufficientPermission
	}

	trainings, err := s.repo.List(ctx)
	if err != nil {
		return internal.NewInternalError("failed to export trainings", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "category", "location", "scheduled_at", "duration_hours", "completions"}); err != nil {
		return internal.NewInternalError("failed to write csv header", err)
	}

	for _, t := range trainings {
		completions, err := s.repo.ListCompletions(ctx, t.ID)
		if err != nil {
			return internal.NewInternalError("failed to export trainings", err)
		}
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			t.Category,
			t.Location,
			t.ScheduledAt.Format(time.RFC3339),
			strconv.Itoa(t.DurationHours),
			strconv.Itoa(len(completions)),
		}
		if err := cw.Write(record); err != nil {
			return internal.NewInternalError("failed to write csv record", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return internal.NewInternalError("failed to flush csv", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: string(actor.Role),
		Action:    audit.ActionDownload,
		Resource:  auditResource,
		Details:   "exported training roster to CSV",
	})

	return nil
}
