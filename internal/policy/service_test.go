package policy_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/audit"
	"github.com/reservehq/reserve-personnel/internal/auth"
	"github.com/reservehq/reserve-personnel/internal/policy"
)

func TestPolicyService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Policy Service Suite")
}

// Mock repository for testing
type mockPolicyRepository struct {
	policies map[int64]*policy.Policy
	acks     map[int64][]*policy.Acknowledgement
	nextID   int64
}

func newMockPolicyRepository() *mockPolicyRepository {
	return &mockPolicyRepository{
		policies: make(map[int64]*policy.Policy),
		acks:     make(map[int64][]*policy.Acknowledgement),
		nextID:   1,
	}
}

func (m *mockPolicyRepository) Create(_ context.Context, p *policy.Policy) error {
	p.ID = m.nextID
	m.nextID++
	m.policies[p.ID] = p
	return nil
}

func (m *mockPolicyRepository) GetByID(_ context.Context, id int64) (*policy.Policy, error) {
	p, exists := m.policies[id]
	if !exists {
		return nil, policy.ErrNotFound
	}
	return p, nil
}

func (m *mockPolicyRepository) List(_ context.Context, activeOnly bool) ([]*policy.Policy, error) {
	var out []*policy.Policy
	for _, p := range m.policies {
		if activeOnly && !p.Active() {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPolicyRepository) Update(_ context.Context, p *policy.Policy) error {
	m.policies[p.ID] = p
	return nil
}

func (m *mockPolicyRepository) CreateAcknowledgement(_ context.Context, a *policy.Acknowledgement) error {
	a.ID = m.nextID
	m.nextID++
	m.acks[a.PolicyID] = append(m.acks[a.PolicyID], a)
	return nil
}

func (m *mockPolicyRepository) GetAcknowledgement(_ context.Context, policyID, userID int64) (*policy.Acknowledgement, error) {
	for _, a := range m.acks[policyID] {
		if a.UserID == userID {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockPolicyRepository) ListAcknowledgements(_ context.Context, policyID int64) ([]*policy.Acknowledgement, error) {
	return m.acks[policyID], nil
}

type mockAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *mockAuditor) Record(_ context.Context, entry audit.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

var _ = Describe("PolicyService", func() {
	var (
		service *policy.Service
		repo    *mockPolicyRepository
		auditor *mockAuditor

		admin  *auth.User
		member *auth.User
	)

	BeforeEach(func() {
		repo = newMockPolicyRepository()
		auditor = &mockAuditor{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = policy.NewService(repo, auditor, logger)

		admin = &auth.User{ID: 1, Name: "Avery Admin", Role: auth.RoleAdministrator}
		member = &auth.User{ID: 2, Name: "Dana Reservist", Role: auth.RoleReservist}
	})

	publish := func() *policy.Policy {
		p, err := service.Create(context.Background(), admin, policy.CreatePolicyDTO{
			Title: "Weapon storage directive",
			Body:  "All weapons are stored in the armory.",
		})
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	Describe("Create", func() {
		It("publishes a policy effective immediately by default", func() {
			p := publish()
			Expect(p.ID).To(BeNumerically(">", 0))
			Expect(p.EffectiveAt).NotTo(BeZero())
			Expect(p.Active()).To(BeTrue())
		})

		It("denies reservists the publication", func() {
			_, err := service.Create(context.Background(), member, policy.CreatePolicyDTO{
				Title: "Directive",
				Body:  "Body",
			})
			Expect(err).To(Equal(internal.ErrInsufficientPermission))
		})

		It("rejects an empty body", func() {
			_, err := service.Create(context.Background(), admin, policy.CreatePolicyDTO{Title: "Directive"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Acknowledge", func() {
		It("records a member's read receipt", func() {
			p := publish()

			ack, err := service.Acknowledge(context.Background(), member, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ack.UserID).To(Equal(member.ID))
			Expect(ack.AcknowledgedAt).NotTo(BeZero())
		})

		It("returns the original receipt when acknowledged twice", func() {
			p := publish()

			first, err := service.Acknowledge(context.Background(), member, p.ID)
			Expect(err).NotTo(HaveOccurred())

			second, err := service.Acknowledge(context.Background(), member, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).To(Equal(first.ID))

			acks, err := repo.ListAcknowledgements(context.Background(), p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(acks).To(HaveLen(1))
		})

		It("refuses acknowledgement of a retired policy", func() {
			p := publish()
			_, err := service.Retire(context.Background(), admin, p.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Acknowledge(context.Background(), member, p.ID)
			Expect(err).To(Equal(policy.ErrNotFound))
		})
	})

	Describe("List", func() {
		It("hides retired policies from non-managers", func() {
			active := publish()
			retired := publish()
			_, err := service.Retire(context.Background(), admin, retired.ID)
			Expect(err).NotTo(HaveOccurred())

			forMember, err := service.List(context.Background(), member)
			Expect(err).NotTo(HaveOccurred())
			Expect(forMember).To(HaveLen(1))
			Expect(forMember[0].ID).To(Equal(active.ID))

			forAdmin, err := service.List(context.Background(), admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(forAdmin).To(HaveLen(2))
		})
	})

	Describe("Acknowledgements", func() {
		It("is limited to policy managers", func() {
			p := publish()
			_, err := service.Acknowledge(context.Background(), member, p.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Acknowledgements(context.Background(), member, p.ID)
			Expect(err).To(Equal(internal.ErrInsufficientPermission))

			acks, err := service.Acknowledgements(context.Background(), admin, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(acks).To(HaveLen(1))
		})
	})
})
