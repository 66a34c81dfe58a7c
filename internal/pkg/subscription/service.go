package subscription

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/config"
	"github.com/autoarte/AutoArte/internal/pkg/dedup"
	"github.com/autoarte/AutoArte/internal/pkg/payments"
	"github.com/autoarte/AutoArte/internal/pkg/plancatalog"
)

// errAbort rolls the transaction (including the dedup claim) back while the
// already-filled Result survives to the caller.
var errAbort = errors.New("subscription: abort transaction")

// Snapshot is the subscription-relevant slice of a user record, reported
// before and after an apply.
type Snapshot struct {
	AccessLevel        string     `json:"access_level"`
	PlanType           string     `json:"plan_type"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"`
	HasLifetimeAccess  bool       `json:"has_lifetime_access"`
}

// Result is the terminal outcome of reconciling one canonical event.
// Outcome uses the audit status vocabulary.
type Result struct {
	Outcome      string
	Reason       string
	PriorOutcome string
	UserID       uint
	Previous     *Snapshot
	New          *Snapshot
}

// Service owns all writes to the user subscription fields. Every mutation
// happens under a row-level lock inside one transaction together with the
// dedup claim, so concurrent deliveries and the sweeper serialize per user.
type Service struct {
	db      *gorm.DB
	catalog *plancatalog.Catalog
	policy  config.PolicyConfig
	now     func() time.Time
}

func NewService(db *gorm.DB, catalog *plancatalog.Catalog, policy config.PolicyConfig) *Service {
	return &Service{db: db, catalog: catalog, policy: policy, now: time.Now}
}

// Reconcile claims the event in the dedup ledger and applies it to the
// user's subscription state atomically. Terminal outcomes (processed,
// duplicate, quarantined, apply error) come back as a Result with a nil
// error; a non-nil error means a transient store failure where the gateway
// should solicit a provider retry — the claim is rolled back with it.
func (s *Service) Reconcile(ctx context.Context, ev *payments.CanonicalEvent) (*Result, error) {
	plan, result, err := s.resolvePlan(ctx, ev)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	res := &Result{}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := dedup.TryClaim(tx, ev.Source, ev.TransactionID, ev.EventType)
		if err != nil {
			return err
		}
		if !claim.Claimed {
			res.Outcome = models.AuditDuplicate
			if claim.Prior != nil {
				res.PriorOutcome = claim.Prior.Outcome
			}
			return nil
		}

		var user models.User
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", ev.UserEmail).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.policy.UserPolicy != config.UserPolicyAutoProvision {
				res.Outcome = models.AuditQuarantined
				res.Reason = ErrKindUserUnresolvable
				return errAbort
			}
			shell, err := provisionShell(ev)
			if err != nil {
				return err
			}
			if err := tx.Create(shell).Error; err != nil {
				return err
			}
			log.Infof("[Subscription] auto-provisioned user shell for %s", ev.UserEmail)
			user = *shell
		} else if err != nil {
			return err
		}

		prev := snapshot(&user)
		if err := applyTransition(&user, ev, plan, s.now()); err != nil {
			var ae *ApplyError
			if errors.As(err, &ae) {
				res.Outcome = models.AuditError
				res.Reason = ae.Kind
				return errAbort
			}
			return err
		}

		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		if err := dedup.SetOutcome(tx, ev.Source, ev.TransactionID, ev.EventType, models.AuditProcessed); err != nil {
			return err
		}

		res.Outcome = models.AuditProcessed
		res.UserID = user.ID
		res.Previous = prev
		res.New = snapshot(&user)
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, errAbort) {
			return res, nil
		}
		return nil, txErr
	}
	return res, nil
}

// resolvePlan looks the product up for the event types that need one and
// applies the unknown-product policy. A non-nil Result short-circuits
// reconciliation before any claim is taken.
func (s *Service) resolvePlan(ctx context.Context, ev *payments.CanonicalEvent) (*plancatalog.Plan, *Result, error) {
	if ev.EventType != payments.EventPurchaseApproved && ev.EventType != payments.EventRenewal {
		return nil, nil, nil
	}

	plan, err := s.catalog.Resolve(ctx, ev.Source, ev.ProductID)
	if err == nil {
		return plan, nil, nil
	}
	if !errors.Is(err, plancatalog.ErrUnknownProduct) {
		return nil, nil, err
	}

	log.Warnf("[Subscription] unknown product %s/%s for transaction %s", ev.Source, ev.ProductID, ev.TransactionID)
	if s.policy.UnknownProductPolicy == config.UnknownProductDefaultMonthly {
		d := s.policy.DefaultDurationDays
		return &plancatalog.Plan{PlanType: models.PlanMonthly, DurationDays: &d}, nil, nil
	}
	return nil, &Result{Outcome: models.AuditQuarantined, Reason: ErrKindUnknownProduct}, nil
}

func snapshot(u *models.User) *Snapshot {
	s := &Snapshot{
		AccessLevel:       u.AccessLevel,
		PlanType:          u.PlanType,
		HasLifetimeAccess: u.HasLifetimeAccess,
	}
	if u.SubscriptionExpiry != nil {
		t := *u.SubscriptionExpiry
		s.SubscriptionExpiry = &t
	}
	return s
}

// provisionShell builds a minimal free-tier account for a buyer the
// platform has never seen. The password is random; the user claims the
// account through the normal reset flow.
func provisionShell(ev *payments.CanonicalEvent) (*models.User, error) {
	name := strings.TrimSpace(ev.UserName)
	if len(name) < 3 {
		name = "Cliente " + ev.UserEmail
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	return models.CreateUser(name, ev.UserEmail, hex.EncodeToString(b))
}
