package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/autoarte/AutoArte/app/models"
)

const lockKey = "sweeper:expiration:lock"

// ErrAlreadyRunning reports that another process holds the sweep lock.
var ErrAlreadyRunning = errors.New("sweeper: a sweep is already running")

// AuditRecorder appends one downgrade outcome to the audit log.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.WebhookAuditEntry) error
}

// UserStore provides the persistence operations the sweeper needs.
// DowngradeIfExpired must re-check the expiry under a row lock, because a
// renewal webhook may land between the scan and the write.
type UserStore interface {
	FindExpiredPremium(ctx context.Context, afterID uint, cutoff time.Time, limit int) ([]models.User, error)
	DowngradeIfExpired(ctx context.Context, userID uint, cutoff time.Time) (*models.User, bool, error)
	CreateRun(ctx context.Context, run *models.SweepRun) error
	SaveRun(ctx context.Context, run *models.SweepRun) error
}

// Sweeper downgrades users whose timed subscription expired without a
// cancellation or refund webhook ever arriving.
type Sweeper struct {
	store     UserStore
	locker    Locker
	audit     AuditRecorder
	batchSize int
	lockTTL   time.Duration
	now       func() time.Time
}

func New(store UserStore, locker Locker, audit AuditRecorder, batchSize int, lockTTL time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		locker:    locker,
		audit:     audit,
		batchSize: batchSize,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
}

// RunOnce executes one full sweep under the distributed lock and records it
// as a SweepRun. Returns ErrAlreadyRunning when another run holds the lock.
func (s *Sweeper) RunOnce(ctx context.Context) (*models.SweepRun, error) {
	acquired, err := s.locker.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquiring sweep lock: %w", err)
	}
	if !acquired {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey); err != nil {
			log.Warnf("[Sweeper] releasing sweep lock failed: %v", err)
		}
	}()

	run := &models.SweepRun{StartedAt: s.now()}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("recording sweep run: %w", err)
	}

	scanned, downgraded, sweepErr := s.sweep(ctx)
	run.UsersScanned = scanned
	run.UsersDowngraded = downgraded
	finished := s.now()
	run.FinishedAt = &finished
	if sweepErr != nil {
		run.Error = sweepErr.Error()
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		log.Errorf("[Sweeper] finalizing sweep run %d failed: %v", run.ID, err)
	}

	log.Infof("[Sweeper] run %d finished: scanned=%d downgraded=%d", run.ID, scanned, downgraded)
	return run, sweepErr
}

func (s *Sweeper) sweep(ctx context.Context) (scanned, downgraded int, err error) {
	cutoff := s.now()
	var lastID uint

	for {
		batch, err := s.store.FindExpiredPremium(ctx, lastID, cutoff, s.batchSize)
		if err != nil {
			return scanned, downgraded, fmt.Errorf("scanning expired users: %w", err)
		}
		if len(batch) == 0 {
			return scanned, downgraded, nil
		}

		for i := range batch {
			lastID = batch[i].ID
			scanned++

			user, did, err := s.store.DowngradeIfExpired(ctx, batch[i].ID, cutoff)
			if err != nil {
				return scanned, downgraded, err
			}
			if !did {
				continue
			}
			downgraded++

			if err := s.audit.Record(ctx, &models.WebhookAuditEntry{
				Source:    "sweeper",
				Status:    models.AuditSweepDowngrade,
				UserEmail: user.Email,
				Message:   fmt.Sprintf("subscription expired %s", batch[i].SubscriptionExpiry.Format(time.RFC3339)),
			}); err != nil {
				log.Errorf("[Sweeper] audit write failed for user %d: %v", user.ID, err)
			}
		}
	}
}

type gormUserStore struct {
	db *gorm.DB
}

// NewStore creates the GORM-backed sweeper store.
func NewStore(db *gorm.DB) UserStore {
	return &gormUserStore{db: db}
}

func (s *gormUserStore) FindExpiredPremium(ctx context.Context, afterID uint, cutoff time.Time, limit int) ([]models.User, error) {
	var batch []models.User
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Where("access_level = ?", models.AccessPremium).
		Where("has_lifetime_access = ?", false).
		Where("subscription_expiry IS NOT NULL AND subscription_expiry < ?", cutoff).
		Order("id ASC").
		Limit(limit).
		Find(&batch).Error
	return batch, err
}

func (s *gormUserStore) DowngradeIfExpired(ctx context.Context, userID uint, cutoff time.Time) (*models.User, bool, error) {
	var user models.User
	var did bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if user.AccessLevel != models.AccessPremium ||
			user.HasLifetimeAccess ||
			!user.SubscriptionExpired(cutoff) {
			return nil
		}

		user.AccessLevel = models.AccessFree
		user.PlanType = models.PlanNone
		user.SubscriptionExpiry = nil
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		did = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &user, did, nil
}

func (s *gormUserStore) CreateRun(ctx context.Context, run *models.SweepRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *gormUserStore) SaveRun(ctx context.Context, run *models.SweepRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}
