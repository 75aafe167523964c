package accountrequest_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/accountrequest"
	"github.com/reservehq/reserve-personnel/internal/audit"
	"github.com/reservehq/reserve-personnel/internal/auth"
	"github.com/reservehq/reserve-personnel/internal/core/events"
)

func TestAccountRequestService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AccountRequest Service Suite")
}

// Mock repository for testing
type mockRequestRepository struct {
	requests    map[int64]*accountrequest.AccountRequest
	nextID      int64
	createError error
	decideError error
	// When set, Decide reports zero rows affected regardless of state,
	// simulating a concurrent decision landing first.
	loseRace bool
}

func newMockRequestRepository() *mockRequestRepository {
	return &mockRequestRepository{
		requests: make(map[int64]*accountrequest.AccountRequest),
		nextID:   1,
	}
}

func (m *mockRequestRepository) Create(_ context.Context, req *accountrequest.AccountRequest) error {
	if m.createError != nil {
		return m.createError
	}
	req.ID = m.nextID
	m.nextID++
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestRepository) GetByID(_ context.Context, id int64) (*accountrequest.AccountRequest, error) {
	req, exists := m.requests[id]
	if !exists {
		return nil, accountrequest.ErrNotFound
	}
	copy := *req
	return &copy, nil
}

func (m *mockRequestRepository) List(_ context.Context, status string) ([]*accountrequest.AccountRequest, error) {
	var out []*accountrequest.AccountRequest
	for _, req := range m.requests {
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *mockRequestRepository) Decide(_ context.Context, id int64, status string, reason *string, decidedAt time.Time) (bool, error) {
	if m.decideError != nil {
		return false, m.decideError
	}
	if m.loseRace {
		return false, nil
	}
	req, exists := m.requests[id]
	if !exists || req.Status != accountrequest.StatusPending {
		return false, nil
	}
	req.Status = status
	req.RejectionReason = reason
	req.DecidedAt = &decidedAt
	return true, nil
}

// Mock auditor capturing entries synchronously
type mockAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *mockAuditor) Record(_ context.Context, entry audit.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *mockAuditor) Entries() []audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

var _ = Describe("AccountRequestService", func() {
	var (
		service *accountrequest.Service
		repo    *mockRequestRepository
		auditor *mockAuditor
		bus     *events.EventBus
		logger  *slog.Logger

		admin     *auth.User
		reservist *auth.User
	)

	BeforeEach(func() {
		repo = newMockRequestRepository()
		auditor = &mockAuditor{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		service = accountrequest.NewService(repo, auditor, bus, logger)

		admin = &auth.User{ID: 1, Name: "Avery Admin", Email: "admin@unit.mil", Role: auth.RoleAdministrator}
		reservist = &auth.User{ID: 2, Name: "Dana Reservist", Email: "dana@unit.mil", Role: auth.RoleReservist}
	})

	submitPending := func() *accountrequest.AccountRequest {
		req, err := service.Submit(context.Background(), accountrequest.SubmitRequestDTO{
			Name:    "New Applicant",
			Email:   "applicant@unit.mil",
			Rank:    "Private",
			Company: "Alpha",
		})
		Expect(err).NotTo(HaveOccurred())
		return req
	}

	Describe("Submit", func() {
		It("creates a pending request and audits the submission", func() {
			req := submitPending()

			Expect(req.ID).To(BeNumerically(">", 0))
			Expect(req.Status).To(Equal(accountrequest.StatusPending))
			Expect(req.DecidedAt).To(BeNil())

			entries := auditor.Entries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(audit.ActionCreate))
			Expect(entries[0].ActorRole).To(Equal("applicant"))
		})

		It("normalizes the email to lower case", func() {
			req, err := service.Submit(context.Background(), accountrequest.SubmitRequestDTO{
				Name:    "New Applicant",
				Email:   "  Applicant@Unit.MIL ",
				Rank:    "Private",
				Company: "Alpha",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Email).To(Equal("applicant@unit.mil"))
		})

		It("rejects an invalid submission", func() {
			_, err := service.Submit(context.Background(), accountrequest.SubmitRequestDTO{
				Name: "No Email",
			})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Approve", func() {
		It("transitions a pending request to approved and records exactly one decision entry", func() {
			req := submitPending()
			before := len(auditor.Entries())

			decided, err := service.Approve(context.Background(), admin, req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(decided.Status).To(Equal(accountrequest.StatusApproved))
			Expect(decided.DecidedAt).NotTo(BeNil())

			entries := auditor.Entries()
			Expect(entries).To(HaveLen(before + 1))
			Expect(entries[len(entries)-1].Action).To(Equal(audit.ActionApprove))
			Expect(entries[len(entries)-1].ActorID).To(Equal(admin.ID))
		})

		It("publishes an approval event after the transition", func() {
			var (
				mu       sync.Mutex
				received []events.Event
			)
			bus.Subscribe(events.AccountRequestApproved, func(_ context.Context, e events.Event) error {
				mu.Lock()
				defer mu.Unlock()
				received = append(received, e)
				return nil
			})

			req := submitPending()
			_, err := service.Approve(context.Background(), admin, req.ID)
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() int {
				mu.Lock()
				defer mu.Unlock()
				return len(received)
			}).Should(Equal(1))
		})

		It("refuses a second decision on a decided request", func() {
			req := submitPending()

			_, err := service.Approve(context.Background(), admin, req.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Approve(context.Background(), admin, req.ID)
			Expect(err).To(Equal(accountrequest.ErrAlreadyDecided))

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInvalidState))
		})

		It("reports a conflict when another actor's decision lands first", func() {
			req := submitPending()
			repo.loseRace = true

			_, err := service.Approve(context.Background(), admin, req.ID)
			Expect(err).To(Equal(accountrequest.ErrRaceLost))

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})

		It("denies actors without the approval permission", func() {
			req := submitPending()

			_, err := service.Approve(context.Background(), reservist, req.ID)
			Expect(err).To(Equal(internal.ErrInsufficientPermission))

			stored, getErr := repo.GetByID(context.Background(), req.ID)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(accountrequest.StatusPending))
		})

		It("returns not found for unknown requests", func() {
			_, err := service.Approve(context.Background(), admin, 999)
			Expect(err).To(Equal(accountrequest.ErrNotFound))
		})
	})

	Describe("Reject", func() {
		It("requires a non-empty reason and leaves the request pending without one", func() {
			req := submitPending()

			_, err := service.Reject(context.Background(), admin, req.ID, "   ")
			Expect(err).To(Equal(accountrequest.ErrReasonRequired))

			stored, getErr := repo.GetByID(context.Background(), req.ID)
			Expect(getErr).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(accountrequest.StatusPending))
		})

		It("stores the trimmed reason on rejection", func() {
			req := submitPending()

			decided, err := service.Reject(context.Background(), admin, req.ID, "  incomplete paperwork  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(decided.Status).To(Equal(accountrequest.StatusRejected))
			Expect(decided.RejectionReason).NotTo(BeNil())
			Expect(*decided.RejectionReason).To(Equal("incomplete paperwork"))
		})

		It("records a reject audit entry with the reason", func() {
			req := submitPending()
			before := len(auditor.Entries())

			_, err := service.Reject(context.Background(), admin, req.ID, "incomplete paperwork")
			Expect(err).NotTo(HaveOccurred())

			entries := auditor.Entries()
			Expect(entries).To(HaveLen(before + 1))
			last := entries[len(entries)-1]
			Expect(last.Action).To(Equal(audit.ActionReject))
			Expect(last.Details).To(ContainSubstring("incomplete paperwork"))
		})
	})

	Describe("List", func() {
		It("filters by status", func() {
			req := submitPending()
			_, err := service.Approve(context.Background(), admin, req.ID)
			Expect(err).NotTo(HaveOccurred())

			approved, err := service.List(context.Background(), accountrequest.StatusApproved)
			Expect(err).NotTo(HaveOccurred())
			Expect(approved).To(HaveLen(1))

			pending, err := service.List(context.Background(), accountrequest.StatusPending)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})

		It("rejects unknown status filters", func() {
			_, err := service.List(context.Background(), "archived")
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidStatus))
		})
	})
})

var _ = Describe("ReviewDTO", func() {
	It("requires a reason when rejecting", func() {
		dto := accountrequest.ReviewDTO{ID: 1, Status: accountrequest.StatusRejected}
		err := dto.Validate()
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, accountrequest.ErrReasonRequired)).To(BeTrue())
	})

	It("accepts an approval without a reason", func() {
		dto := accountrequest.ReviewDTO{ID: 1, Status: accountrequest.StatusApproved}
		Expect(dto.Validate()).To(Succeed())
	})

	It("rejects unknown decision statuses", func() {
		dto := accountrequest.ReviewDTO{ID: 1, Status: "maybe"}
		Expect(dto.Validate()).To(HaveOccurred())
	})
})
