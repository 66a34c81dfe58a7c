package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// Access levels a user can hold on the platform. AccessAdmin,
// AccessDesigner and AccessDesignerAdmin are manual grants without an
// expiry; only AccessPremium is managed by the payment providers and
// therefore subject to the expiration sweep.
const (
	AccessFree          = "free"
	AccessPremium       = "premium"
	AccessAdmin         = "admin"
	AccessDesigner      = "designer"
	AccessDesignerAdmin = "designer_admin"
)

const (
	PlanMonthly  = "monthly"
	PlanAnnual   = "annual"
	PlanLifetime = "lifetime"
	PlanNone     = "none"
)

// Subscription origins. OriginManual covers admin-granted access that no
// provider webhook will ever touch.
const (
	OriginHotmart = "hotmart"
	OriginDoppus  = "doppus"
	OriginManual  = "manual"
)

type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Name               string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email              string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password           string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role               string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status             string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	AccessLevel        string         `gorm:"type:varchar(50);default:'free';index" json:"access_level" validate:"oneof=free premium admin designer designer_admin"`
	PlanType           string         `gorm:"type:varchar(20);default:'none'" json:"plan_type" validate:"oneof=monthly annual lifetime none"`
	SubscriptionStart  *time.Time     `gorm:"type:timestamp;default:null" json:"subscription_start,omitempty"`
	SubscriptionExpiry *time.Time     `gorm:"type:timestamp;default:null;index" json:"subscription_expiry,omitempty"`
	HasLifetimeAccess  bool           `gorm:"default:false;index" json:"has_lifetime_access"`
	SubscriptionOrigin string         `gorm:"type:varchar(20);default:''" json:"subscription_origin"`
	LastLoginAt        *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:        username,
		Email:       email,
		Password:    pw,
		Role:        ROLE_USER,
		Status:      STATUS_INACTIVE,
		AccessLevel: AccessFree,
		PlanType:    PlanNone,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// HasPaidAccess reports whether the user currently holds any non-free access
// level, regardless of expiry.
func (u *User) HasPaidAccess() bool {
	return u.AccessLevel != "" && u.AccessLevel != AccessFree
}

// IsManualGrant reports whether the access level is one of the manual grants
// that carry no expiry and are never touched by provider webhooks or the
// expiration sweep.
func (u *User) IsManualGrant() bool {
	switch u.AccessLevel {
	case AccessAdmin, AccessDesigner, AccessDesignerAdmin:
		return true
	default:
		return false
	}
}

// SubscriptionExpired reports whether a provider-managed subscription has
// lapsed at the given instant. Lifetime access never expires.
func (u *User) SubscriptionExpired(now time.Time) bool {
	if u.HasLifetimeAccess {
		return false
	}
	if u.SubscriptionExpiry == nil {
		return false
	}
	return u.SubscriptionExpiry.Before(now)
}
