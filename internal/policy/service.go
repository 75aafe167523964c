package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/audit"
	"github.com/reservehq/reserve-personnel/internal/auth"
)

const auditResource = "policy"

// Repository defines the data access methods for policies.
type Repository interface {
	Create(ctx context.Context, p *Policy) error
	GetByID(ctx context.Context, id int64) (*Policy, error)
	List(ctx context.Context, activeOnly bool) ([]*Policy, error)
	Update(ctx context.Context, p *Policy) error
	CreateAcknowledgement(ctx context.Context, a *Acknowledgement) error
	GetAcknowledgement(ctx context.Context, policyID, userID int64) (*Acknowledgement, error)
	ListAcknowledgements(ctx context.Context, policyID int64) ([]*Acknowledgement, error)
}

type Service struct {
	repo    Repository
	auditor audit.Recorder
	logger  *slog.Logger
}

func NewService(repo Repository, auditor audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, auditor: auditor, logger: logger}
}

func (s *Service) Create(ctx context.Context, actor *auth.User, dto CreatePolicyDTO) (*Policy, error) {
	if !actor.HasPermission(auth.PermManagePolicies) {
		return nil, internal.ErrInsufficientPermission
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	effective := dto.EffectiveAt
	if effective.IsZero() {
		effective = now
	}
	p := &Policy{
		Title:       dto.Title,
		Body:        dto.Body,
		Category:    dto.Category,
		EffectiveAt: effective,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("failed to create policy", "error", err)
		return nil, internal.NewInternalError("failed to create policy", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionCreate,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(p.ID, 10),
		Details:    fmt.Sprintf("published policy %q", p.Title),
	})

	return p, nil
}

func (s *Service) List(ctx context.Context, actor *auth.User) ([]*Policy, error) {
	if !actor.HasPermission(auth.PermViewPolicies) {
		return nil, internal.ErrInsufficientPermission
	}

	// Managers see retired policies too; everyone else only active ones.
	activeOnly := !actor.HasPermission(auth.PermManagePolicies)
	policies, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		s.logger.Error("failed to list policies", "error", err)
		return nil, internal.NewInternalError("failed to list policies", err)
	}
	return policies, nil
}

func (s *Service) GetByID(ctx context.Context, actor *auth.User, id int64) (*Policy, error) {
	if !actor.HasPermission(auth.PermViewPolicies) {
		return nil, internal.ErrInsufficientPermission
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active() && !actor.HasPermission(auth.PermManagePolicies) {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.User, id int64, dto UpdatePolicyDTO) (*Policy, error) {
	if !actor.HasPermission(auth.PermManagePolicies) {
		return nil, internal.ErrInsufficientPermission
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Title != nil {
		p.Title = *dto.Title
	}
	if dto.Body != nil {
		p.Body = *dto.Body
	}
	if dto.Category != nil {
		p.Category = *dto.Category
	}
	if dto.EffectiveAt != nil {
		p.EffectiveAt = *dto.EffectiveAt
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		s.logger.Error("failed to update policy", "error", err, "policy_id", id)
		return nil, internal.NewInternalError("failed to update policy", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionUpdate,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(id, 10),
		Details:    fmt.Sprintf("updated policy %q", p.Title),
	})

	return p, nil
}

// Retire withdraws a policy without deleting its acknowledgement history.
func (s *Service) Retire(ctx context.Context, actor *auth.User, id int64) (*Policy, error) {
	if !actor.HasPermission(auth.PermManagePolicies) {
		return nil, internal.ErrInsufficientPermission
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p.RetiredAt = &now
	p.UpdatedAt = now

	if err := s.repo.Update(ctx, p); err != nil {
		s.logger.Error("failed to retire policy", "error", err, "policy_id", id)
		return nil, internal.NewInternalError("failed to retire policy", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionDelete,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(id, 10),
		Details:    fmt.Sprintf("retired policy %q", p.Title),
	})

	return p, nil
}

// Acknowledge records the actor's read receipt. Acknowledging twice is a
// no-op that returns the original receipt.
func (s *Service) Acknowledge(ctx context.Context, actor *auth.User, policyID int64) (*Acknowledgement, error) {
	if !actor.HasPermission(auth.PermAcknowledgePolicies) {
		return nil, internal.ErrInsufficientPermission
	}

	p, err := s.repo.GetByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if !p.Active() {
		return nil, ErrNotFound
	}

	if existing, err := s.repo.GetAcknowledgement(ctx, policyID, actor.ID); err == nil && existing != nil {
		return existing, nil
	}

	ack := &Acknowledgement{
		PolicyID:       policyID,
		UserID:         actor.ID,
		AcknowledgedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateAcknowledgement(ctx, ack); err != nil {
		s.logger.Error("failed to record acknowledgement", "error", err, "policy_id", policyID)
		return nil, internal.NewInternalError("failed to record acknowledgement", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     audit.ActionVerify,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(policyID, 10),
		Details:    fmt.Sprintf("acknowledged policy %q", p.Title),
	})

	return ack, nil
}

// Acknowledgements lists the read receipts for a policy, for manager review.
func (s *Service) Acknowledgements(ctx context.Context, actor *auth.User, policyID int64) ([]*Acknowledgement, error) {
	if !actor.HasPermission(auth.PermManagePolicies) {
		return nil, internal.ErrInsufficientPermission
	}

	if _, err := s.repo.GetByID(ctx, policyID); err != nil {
		return nil, err
	}

	acks, err := s.repo.ListAcknowledgements(ctx, policyID)
	if err != nil {
		s.logger.Error("failed to list acknowledgements", "error", err, "policy_id", policyID)
		return nil, internal.NewInternalError("failed to list acknowledgements", err)
	}
	return acks, nil
}
