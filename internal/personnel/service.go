package personnel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/audit"
	"github.com/reservehq/reserve-personnel/internal/auth"
	"github.com/reservehq/reserve-personnel/internal/core/events"
)

const auditResource = "personnel"

// Repository defines the data access methods for personnel records.
type Repository interface {
	Create(ctx context.Context, p *Personnel) error
	GetByID(ctx context.Context, id int64) (*Personnel, error)
	GetByEmail(ctx context.Context, email string) (*Personnel, error)
	List(ctx context.Context, company string) ([]*Personnel, error)
	Update(ctx context.Context, p *Personnel) error
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	repo    Repository
	auditor audit.Recorder
	logger  *slog.Logger
}

func NewService(repo Repository, auditor audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		auditor: auditor,
		logger:  logger,
	}
}

// RegisterEventHandlers subscribes the directory sync to approval events.
func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.AccountRequestApproved, s.handleAccountApproved)
}

// handleAccountApproved materializes a personnel record for a newly approved
// account. New members start on standby until readiness is verified. The
// sync is idempotent on email so a replayed event cannot duplicate a record.
func (s *Service) handleAccountApproved(ctx context.Context, event events.Event) error {
	decided, ok := event.(events.AccountRequestDecidedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}
	data := decided.Decision

	if existing, err := s.repo.GetByEmail(ctx, data.Email); err == nil && existing != nil {
		s.logger.Info("personnel record already exists for approved account",
			"email", data.Email,
			"personnel_id", existing.ID)
		return nil
	}

	now := time.Now().UTC()
	record := &Personnel{
		AccountRequestID: &data.RequestID,
		Name:             data.Name,
		Email:            data.Email,
		Rank:             data.Rank,
		Company:          data.Company,
		Status:           StatusStandby,
		JoinedAt:         data.DecidedAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("personnel sync failed",
			"error", err,
			"request_id", data.RequestID,
			"email", data.Email)
		return err
	}

	s.logger.Info("personnel record created from approved account",
		"personnel_id", record.ID,
		"request_id", data.RequestID)
	return nil
}

// ListForUser scopes the directory by the actor's role: administrators and
// directors see everything, staff see their company, reservists see nothing
// here (their own record is served by the profile endpoint).
func (s *Service) ListForUser(ctx context.Context, actor *auth.User) ([]*Personnel, error) {
	switch {
	case actor.HasPermission(auth.PermViewAllPersonnel):
		return s.list(ctx, "")
	case actor.HasPermission(auth.PermViewCompanyPersonnel):
		return s.list(ctx, actor.Company)
	default:
		s.logger.Warn("personnel list denied", "actor_id", actor.ID, "role", actor.Role)
		return nil, internal.ErrInsufficientPermission
	}
}

func (s *Service) list(ctx context.Context, company string) ([]*Personnel, error) {
	records, err := s.repo.List(ctx, company)
	if err != nil {
		s.logger.Error("failed to list personnel", "error", err)
		return nil, internal.NewInternalError("failed to list personnel", err)
	}
	return records, nil
}

func (s *Service) GetByID(ctx context.Context, actor *auth.User, id int64) (*Personnel, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.HasPermission(auth.PermViewAllPersonnel) {
		return record, nil
	}
	if actor.HasPermission(auth.PermViewCompanyPersonnel) && record.Company == actor.Company {
		return record, nil
	}
	if record.Email == actor.Email {
		return record, nil
	}

	s.logger.Warn("personnel read denied", "actor_id", actor.ID, "personnel_id", id)
	return nil, internal.ErrInsufficientPermission
}

// Update applies a partial edit. Status input is normalized onto the closed
// set before storage so legacy values can never persist.
func (s *Service) Update(ctx context.Context, actor *auth.User, id int64, dto UpdatePersonnelDTO) (*Personnel, error) {
	if !actor.HasPermission(auth.PermEditPersonnel) {
		s.logger.Warn("personnel update denied", "actor_id", actor.ID, "personnel_id", id)
		return nil, internal.ErrInsufficientPermission
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		record.Name = *dto.Name
	}
	if dto.Rank != nil {
		record.Rank = *dto.Rank
	}
	if dto.Company != nil {
		record.Company = *dto.Company
	}
	if dto.Status != nil {
		record.Status = NormalizeStatus(*dto.Status)
	}
	record.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, record); err != nil {
		s.logger.Error("failed to update personnel", "error", err, "personnel_id", id)
		return nil, internal.NewInternalError("failed to update personnel", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionUpdate,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(id, 10),
		Details:    fmt.Sprintf("updated personnel record for %s", record.Email),
	})

	return record, nil
}

// Retire performs the soft exit: status moves to retired, the record stays.
func (s *Service) Retire(ctx context.Context, actor *auth.User, id int64) (*Personnel, error) {
	if !actor.HasPermission(auth.PermEditPersonnel) {
		s.logger.Warn("personnel retire denied", "actor_id", actor.ID, "personnel_id", id)
		return nil, internal.ErrInsufficientPermission
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record.Status = StatusRetired
	record.RetiredAt = &now
	record.UpdatedAt = now

	if err := s.repo.Update(ctx, record); err != nil {
		s.logger.Error("failed to retire personnel", "error", err, "personnel_id", id)
		return nil, internal.NewInternalError("failed to retire personnel", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionUpdate,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(id, 10),
		Details:    fmt.Sprintf("retired personnel record for %s", record.Email),
	})

	return record, nil
}

// Delete is the director-only hard removal path.
func (s *Service) Delete(ctx context.Context, actor *auth.User, id int64) error {
	if !actor.HasPermission(auth.PermDeletePersonnel) {
		s.logger.Warn("personnel delete denied", "actor_id", actor.ID, "personnel_id", id)
		return internal.ErrInsufficientPermission
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete personnel", "error", err, "personnel_id", id)
		return internal.NewInternalError("failed to delete personnel", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionDelete,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(id, 10),
		Details:    fmt.Sprintf("hard-deleted personnel record for %s", record.Email),
	})

	return nil
}
