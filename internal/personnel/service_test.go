package personnel_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/audit"
	"github.com/reservehq/reserve-personnel/internal/auth"
	"github.com/reservehq/reserve-personnel/internal/core/events"
	"github.com/reservehq/reserve-personnel/internal/personnel"
)

func TestPersonnelService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Personnel Service Suite")
}

// Mock repository for testing
type mockPersonnelRepository struct {
	mu      sync.Mutex
	records map[int64]*personnel.Personnel
	byEmail map[string]*personnel.Personnel
	nextID  int64
}

func newMockPersonnelRepository() *mockPersonnelRepository {
	return &mockPersonnelRepository{
		records: make(map[int64]*personnel.Personnel),
		byEmail: make(map[string]*personnel.Personnel),
		nextID:  1,
	}
}

func (m *mockPersonnelRepository) Create(ctx context.Context, p *personnel.Personnel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID
	m.nextID++
	m.records[p.ID] = p
	m.byEmail[p.Email] = p
	return nil
}

func (m *mockPersonnelRepository) GetByID(_ context.Context, id int64) (*personnel.Personnel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, exists := m.records[id]
	if !exists {
		return nil, personnel.ErrNotFound
	}
	return p, nil
}

func (m *mockPersonnelRepository) GetByEmail(ctx context.Context, email string) (*personnel.Personnel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, exists := m.byEmail[email]
	if !exists {
		return nil, personnel.ErrNotFound
	}
	return p, nil
}

func (m *mockPersonnelRepository) List(_ context.Context, company string) ([]*personnel.Personnel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*personnel.Personnel
	for _, p := range m.records {
		if company == "" || p.Company == company {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPersonnelRepository) Update(_ context.Context, p *personnel.Personnel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[p.ID] = p
	m.byEmail[p.Email] = p
	return nil
}

func (m *mockPersonnelRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, exists := m.records[id]; exists {
		delete(m.byEmail, p.Email)
		delete(m.records, id)
	}
	return nil
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

func (m *mockAuditor) Entries() []audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

var _ = Describe("NormalizeStatus", func() {
	DescribeTable("maps input onto the closed status set",
		func(input, expected string) {
			Expect(personnel.NormalizeStatus(input)).To(Equal(expected))
		},
		Entry("ready stays ready", "ready", personnel.StatusReady),
		Entry("upper case ready", "READY", personnel.StatusReady),
		Entry("padded ready", "  Ready  ", personnel.StatusReady),
		Entry("standby stays standby", "standby", personnel.StatusStandby),
		Entry("legacy active maps to standby", "active", personnel.StatusStandby),
		Entry("legacy pending maps to standby", "pending", personnel.StatusStandby),
		Entry("retired stays retired", "retired", personnel.StatusRetired),
		Entry("legacy inactive maps to retired", "inactive", personnel.StatusRetired),
		Entry("legacy medical maps to retired", "medical", personnel.StatusRetired),
		Entry("legacy leave maps to retired", "leave", personnel.StatusRetired),
		Entry("empty input maps to retired", "", personnel.StatusRetired),
		Entry("garbage maps to retired", "banana", personnel.StatusRetired),
	)
})

var _ = Describe("PersonnelService", func() {
	var (
		service *personnel.Service
		repo    *mockPersonnelRepository
		auditor *mockAuditor
		bus     *events.EventBus
		logger  *slog.Logger

		director *auth.User
		staff    *auth.User
		member   *auth.User
	)

	BeforeEach(func() {
		repo = newMockPersonnelRepository()
		auditor = &mockAuditor{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		service = personnel.NewService(repo, auditor, logger)
		service.RegisterEventHandlers(bus)

		director = &auth.User{ID: 1, Name: "Drew Director", Email: "director@unit.mil", Company: "HQ", Role: auth.RoleDirector}
		staff = &auth.User{ID: 2, Name: "Sam Staff", Email: "staff@unit.mil", Company: "Alpha", Role: auth.RoleStaff}
		member = &auth.User{ID: 3, Name: "Dana Reservist", Email: "dana@unit.mil", Company: "Alpha", Role: auth.RoleReservist}
	})

	seed := func(email, company, status string) *personnel.Personnel {
		p := &personnel.Personnel{
			Name:     "Member " + email,
			Email:    email,
			Company:  company,
			Status:   status,
			JoinedAt: time.Now().UTC(),
		}
		Expect(repo.Create(context.Background(), p)).To(Succeed())
		return p
	}

	Describe("directory sync", func() {
		approvedEvent := func(email string) events.AccountRequestDecidedEvent {
			return events.NewAccountRequestApprovedEvent(events.AccountRequestDecidedData{
				RequestID: 11,
				Name:      "New Member",
				Email:     email,
				Rank:      "Private",
				Company:   "Alpha",
				ActorID:   1,
				DecidedAt: time.Now().UTC(),
			})
		}

		It("creates a standby record when an account is approved", func() {
			err := bus.PublishSync(context.Background(), approvedEvent("new@unit.mil"))
			Expect(err).NotTo(HaveOccurred())

			p, err := repo.GetByEmail(context.Background(), "new@unit.mil")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(personnel.StatusStandby))
			Expect(p.AccountRequestID).NotTo(BeNil())
			Expect(*p.AccountRequestID).To(Equal(int64(11)))
		})

		It("materializes the record even after the publisher's request context dies", func() {
			// The approval handler responds (and its request context is
			// cancelled) before async subscribers run; the sync must not
			// be lost to that cancellation.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			Expect(bus.Publish(ctx, approvedEvent("late@unit.mil"))).To(Succeed())

			Eventually(func() error {
				_, err := repo.GetByEmail(context.Background(), "late@unit.mil")
				return err
			}).Should(Succeed())
		})

		It("is idempotent when the same approval is replayed", func() {
			Expect(bus.PublishSync(context.Background(), approvedEvent("new@unit.mil"))).To(Succeed())
			Expect(bus.PublishSync(context.Background(), approvedEvent("new@unit.mil"))).To(Succeed())

			all, err := repo.List(context.Background(), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("writes no audit entry of its own", func() {
			Expect(bus.PublishSync(context.Background(), approvedEvent("new@unit.mil"))).To(Succeed())
			Expect(auditor.Entries()).To(BeEmpty())
		})

		It("ignores rejection events", func() {
			rejected := events.NewAccountRequestRejectedEvent(events.AccountRequestDecidedData{
				RequestID: 12,
				Email:     "denied@unit.mil",
				DecidedAt: time.Now().UTC(),
			})
			Expect(bus.PublishSync(context.Background(), rejected)).To(Succeed())

			all, err := repo.List(context.Background(), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())
		})
	})

	Describe("ListForUser", func() {
		BeforeEach(func() {
			seed("alpha1@unit.mil", "Alpha", personnel.StatusReady)
			seed("alpha2@unit.mil", "Alpha", personnel.StatusStandby)
			seed("bravo1@unit.mil", "Bravo", personnel.StatusReady)
		})

		It("returns the whole directory for directors", func() {
			records, err := service.ListForUser(context.Background(), director)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
		})

		It("scopes staff to their own company", func() {
			records, err := service.ListForUser(context.Background(), staff)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			for _, r := range records {
				Expect(r.Company).To(Equal("Alpha"))
			}
		})

		It("denies reservists the directory listing", func() {
			_, err := service.ListForUser(context.Background(), member)
			Expect(err).To(Equal(internal.ErrInsufficientPermission))
		})
	})

	Describe("GetByID", func() {
		It("lets members read their own record regardless of role", func() {
			own := seed("dana@unit.mil", "Alpha", personnel.StatusReady)

			record, err := service.GetByID(context.Background(), member, own.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Email).To(Equal("dana@unit.mil"))
		})

		It("denies reservists other members' records", func() {
			other := seed("other@unit.mil", "Alpha", personnel.StatusReady)

			_, err := service.GetByID(context.Background(), member, other.ID)
			Expect(err).To(Equal(internal.ErrInsufficientPermission))
		})

		It("denies staff records outside their company", func() {
			bravo := seed("bravo@unit.mil", "Bravo", personnel.StatusReady)

			_, err := service.GetByID(context.Background(), staff, bravo.ID)
			Expect(err).To(Equal(internal.ErrInsufficientPermission))
		})
	})

	Describe("Update", func() {
		It("normalizes legacy status input before storing", func() {
			p := seed("edit@unit.mil", "Alpha", personnel.StatusReady)

			status := "Active"
			updated, err := service.Update(context.Background(), director, p.ID, personnel.UpdatePersonnelDTO{Status: &status})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(personnel.StatusStandby))
		})

		It("audits the edit", func() {
			p := seed("edit@unit.mil", "Alpha", personnel.StatusReady)

			name := "Renamed Member"
			_, err := service.Update(context.Background(), director, p.ID, personnel.UpdatePersonnelDTO{Name: &name})
			Expect(err).NotTo(HaveOccurred())

			entries := auditor.Entries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(audit.ActionUpdate))
			Expect(entries[0].Resource).To(Equal("personnel"))
		})

		It("denies staff the edit", func() {
			p := seed("edit@unit.mil", "Alpha", personnel.StatusReady)

			name := "Renamed Member"
			_, err := service.Update(context.Background(), staff, p.ID, personnel.UpdatePersonnelDTO{Name: &name})
			Expect(err).To(Equal(internal.ErrInsufficientPermission))
		})
	})

	Describe("Retire", func() {
		It("moves the record to retired and keeps it", func() {
			p := seed("retire@unit.mil", "Alpha", personnel.StatusReady)

			retired, err := service.Retire(context.Background(), director, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retired.Status).To(Equal(personnel.StatusRetired))
			Expect(retired.RetiredAt).NotTo(BeNil())

			_, err = repo.GetByID(context.Background(), p.ID)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("is limited to holders of the delete permission", func() {
			p := seed("gone@unit.mil", "Alpha", personnel.StatusRetired)

			err := service.Delete(context.Background(), staff, p.ID)
			Expect(err).To(Equal(internal.ErrInsufficientPermission))

			Expect(service.Delete(context.Background(), director, p.ID)).To(Succeed())

			_, err = repo.GetByID(context.Background(), p.ID)
			Expect(err).To(Equal(personnel.ErrNotFound))
		})
	})
})
