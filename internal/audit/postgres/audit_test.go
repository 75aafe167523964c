package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/reservehq/reserve-personnel/internal/audit"
)

func TestAuditRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AuditRepository Suite")
}

var _ = Describe("AuditRepository", func() {
	var (
		db   *gorm.DB
		repo audit.Repository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&audit.Entry{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewAuditRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	insert := func(action audit.Action, actorName, details string, age time.Duration) *audit.Entry {
		entry := &audit.Entry{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC().Add(-age),
			ActorID:   1,
			ActorName: actorName,
			ActorRole: "administrator",
			Action:    action,
			Resource:  "account_request",
			Details:   details,
		}
		Expect(repo.Insert(ctx, entry)).To(Succeed())
		return entry
	}

	Describe("Search", func() {
		BeforeEach(func() {
			insert(audit.ActionApprove, "Avery Admin", "approved account request for a@unit.mil", time.Hour)
			insert(audit.ActionReject, "Avery Admin", "rejected account request for b@unit.mil: incomplete", 2*time.Hour)
			insert(audit.ActionApprove, "Drew Director", "approved account request for c@unit.mil", 3*time.Hour)
		})

		It("returns everything newest first with the total", func() {
			entries, total, err := repo.Search(ctx, audit.Filter{}, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(3)))
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Timestamp.After(entries[1].Timestamp)).To(BeTrue())
			Expect(entries[1].Timestamp.After(entries[2].Timestamp)).To(BeTrue())
		})

		It("filters by action", func() {
			entries, total, err := repo.Search(ctx, audit.Filter{Action: audit.ActionReject}, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(entries[0].Action).To(Equal(audit.ActionReject))
		})

		It("matches the search term case-insensitively across actor and details", func() {
			entries, total, err := repo.Search(ctx, audit.Filter{SearchTerm: "DREW"}, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(entries[0].ActorName).To(Equal("Drew Director"))

			_, total, err = repo.Search(ctx, audit.Filter{SearchTerm: "incomplete"}, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
		})

		It("pages with a stable total", func() {
			for i := 0; i < 10; i++ {
				insert(audit.ActionView, "Bulk Actor", fmt.Sprintf("view %d", i), time.Duration(i)*time.Minute)
			}

			entries, total, err := repo.Search(ctx, audit.Filter{}, 5, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(13)))
			Expect(entries).To(HaveLen(5))
		})

		It("bounds by date range", func() {
			start := time.Now().UTC().Add(-150 * time.Minute)
			end := time.Now().UTC().Add(-90 * time.Minute)
			entries, total, err := repo.Search(ctx, audit.Filter{StartDate: &start, EndDate: &end}, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(entries[0].Action).To(Equal(audit.ActionReject))
		})
	})

	Describe("DeleteOlderThan", func() {
		It("removes only entries before the cutoff and reports the count", func() {
			insert(audit.ActionLogin, "Old Actor", "ancient login", 100*24*time.Hour)
			insert(audit.ActionLogin, "New Actor", "recent login", time.Minute)

			deleted, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			_, total, err := repo.Search(ctx, audit.Filter{}, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
		})
	})
})
