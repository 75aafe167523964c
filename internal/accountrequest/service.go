package accountrequest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/audit"
	"github.com/reservehq/reserve-personnel/internal/auth"
	"github.com/reservehq/reserve-personnel/internal/core/events"
)

const auditResource = "account_request"

// Repository defines the data access methods for account requests.
type Repository interface {
	Create(ctx context.Context, req *AccountRequest) error
	GetByID(ctx context.Context, id int64) (*AccountRequest, error)
	List(ctx context.Context, status string) ([]*AccountRequest, error)
	// Decide performs the conditional transition: the row is updated only if
	// it is still pending. Returns false when zero rows were affected.
	Decide(ctx context.Context, id int64, status string, reason *string, decidedAt time.Time) (bool, error)
}

type Service struct {
	repo    Repository
	auditor audit.Recorder
	bus     *events.EventBus
	logger  *slog.Logger
}

func NewService(repo Repository, auditor audit.Recorder, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		auditor: auditor,
		bus:     bus,
		logger:  logger,
	}
}

// Submit records a new pending request from external self-registration.
func (s *Service) Submit(ctx context.Context, dto SubmitRequestDTO) (*AccountRequest, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("account request validation failed", "error", err)
		return nil, err
	}

	now := time.Now().UTC()
	req := &AccountRequest{
		Name:        strings.TrimSpace(dto.Name),
		Email:       strings.ToLower(strings.TrimSpace(dto.Email)),
		Rank:        strings.TrimSpace(dto.Rank),
		Company:     strings.TrimSpace(dto.Company),
		Status:      StatusPending,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, req); err != nil {
		s.logger.Error("failed to create account request", "error", err, "email", req.Email)
		return nil, internal.NewInternalError("failed to create account request", err)
	}

	s.logger.Info("account request submitted", "request_id", req.ID, "email", req.Email)

	s.auditor.Record(ctx, audit.Entry{
		ActorName:  req.Name,
		ActorRole:  "applicant",
		Action:     audit.ActionCreate,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(req.ID, 10),
		Details:    fmt.Sprintf("self-registration submitted for %s", req.Email),
	})

	return req, nil
}

// List returns requests, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]*AccountRequest, error) {
	if status != "" && status != StatusPending && status != StatusApproved && status != StatusRejected {
		return nil, internal.NewValidationError(
			fmt.Sprintf("unknown status filter %q", status), internal.ErrCodeInvalidStatus)
	}

	requests, err := s.repo.List(ctx, status)
	if err != nil {
		s.logger.Error("failed to list account requests", "error", err)
		return nil, internal.NewInternalError("failed to list account requests", err)
	}
	return requests, nil
}

// Approve transitions a pending request to approved. The actor's stored role
// must hold the approval permission; the transition itself is a conditional
// update so two racing approvers cannot both succeed.
func (s *Service) Approve(ctx context.Context, actor *auth.User, id int64) (*AccountRequest, error) {
	if !actor.HasPermission(auth.PermApproveReservists) {
		s.logger.Warn("approve denied: insufficient permissions",
			"request_id", id, "actor_id", actorID(actor))
		return nil, internal.ErrInsufficientPermission
	}

	return s.decide(ctx, actor, id, StatusApproved, nil)
}

// Reject transitions a pending request to rejected. The reason is mandatory.
func (s *Service) Reject(ctx context.Context, actor *auth.User, id int64, reason string) (*AccountRequest, error) {
	if !actor.HasPermission(auth.PermApproveReservists) {
		s.logger.Warn("reject denied: insufficient permissions",
			"request_id", id, "actor_id", actorID(actor))
		return nil, internal.ErrInsufficientPermission
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	return s.decide(ctx, actor, id, StatusRejected, &reason)
}

func (s *Service) decide(ctx context.Context, actor *auth.User, id int64, status string, reason *string) (*AccountRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.IsTerminal() {
		s.logger.Warn("cannot decide request in terminal state",
			"request_id", id, "current_status", req.Status)
		return nil, ErrAlreadyDecided
	}

	decidedAt := time.Now().UTC()
	applied, err := s.repo.Decide(ctx, id, status, reason, decidedAt)
	if err != nil {
		s.logger.Error("failed to update request status", "error", err, "request_id", id)
		return nil, internal.NewInternalError("failed to update account request", err)
	}
	if !applied {
		// Pending on read, terminal on write: another actor won the race.
		s.logger.Warn("request decision lost race", "request_id", id, "attempted_status", status)
		return nil, ErrRaceLost
	}

	req.Status = status
	req.RejectionReason = reason
	req.DecidedAt = &decidedAt
	req.UpdatedAt = decidedAt

	s.logger.Info("account request decided",
		"request_id", id,
		"status", status,
		"actor_id", actor.ID)

	// Side effects run only after the transition committed.
	data := events.AccountRequestDecidedData{
		RequestID: req.ID,
		Name:      req.Name,
		Email:     req.Email,
		Rank:      req.Rank,
		Company:   req.Company,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: string(actor.Role),
		DecidedAt: decidedAt,
	}

	action := audit.ActionApprove
	details := fmt.Sprintf("approved account request for %s", req.Email)
	if status == StatusRejected {
		action = audit.ActionReject
		data.RejectionReason = *reason
		details = fmt.Sprintf("rejected account request for %s: %s", req.Email, *reason)
		s.bus.Publish(ctx, events.NewAccountRequestRejectedEvent(data))
	} else {
		s.bus.Publish(ctx, events.NewAccountRequestApprovedEvent(data))
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  string(actor.Role),
		Action:     action,
		Resource:   auditResource,
		ResourceID: strconv.FormatInt(req.ID, 10),
		Details:    details,
	})

	return req, nil
}

func actorID(actor *auth.User) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}
