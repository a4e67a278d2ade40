package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification modes control which listings trigger a notification.
const (
	ModeAll           = "all"
	ModeOnlyPreferred = "only_preferred"
	ModeNearGoodDeal  = "near_good_deal"
	ModeGoodDeal      = "good_deal"
)

// NotificationModes lists the valid notification_mode values in display order.
var NotificationModes = []string{ModeAll, ModeOnlyPreferred, ModeNearGoodDeal, ModeGoodDeal}

// IsValidMode reports whether mode is one of the four notification modes.
func IsValidMode(mode string) bool {
	switch mode {
	case ModeAll, ModeOnlyPreferred, ModeNearGoodDeal, ModeGoodDeal:
		return true
	}
	return false
}

// Preference is a single user's saved resale-notification configuration.
type Preference struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	UniqueUserID string `gorm:"column:unique_userid;size:64;index" json:"unique_userid"`
	Location     string `gorm:"size:100;not null" json:"location"`
	Suburb       string `gorm:"size:100" json:"suburb"`
	// One of ModeAll, ModeOnlyPreferred, ModeNearGoodDeal, ModeGoodDeal.
	NotificationMode string `gorm:"size:20;not null" json:"notification_mode"`

	// Admin-editable metadata.
	UserID           string     `gorm:"size:64" json:"user_id"`
	UserName         string     `gorm:"size:100" json:"user_name"`
	ActivationStatus bool       `gorm:"default:true" json:"activation_status"`
	ExpiryDate       *time.Time `json:"expiry_date"`
	FixedLat         string     `gorm:"size:20" json:"fixed_lat"`
	FixedLon         string     `gorm:"size:20" json:"fixed_lon"`

	// Capability token for anonymous self-service edits. Generated once at
	// creation and never regenerated.
	EditToken string `gorm:"size:64;uniqueIndex;not null" json:"-"`

	Products []ProductPreference `gorm:"constraint:OnDelete:CASCADE" json:"products"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Preference) TableName() string {
	return "preferences"
}

// BeforeCreate assigns the edit token if the caller did not set one.
func (p *Preference) BeforeCreate(tx *gorm.DB) error {
	if p.EditToken == "" {
		p.EditToken = NewEditToken()
	}
	return nil
}

// ExternalID returns the stable identifier used in exports: the stored
// unique_userid when present, otherwise the derived "user_<id>" form.
func (p *Preference) ExternalID() string {
	if p.UniqueUserID != "" {
		return p.UniqueUserID
	}
	return fmt.Sprintf("user_%d", p.ID)
}

// NewEditToken returns an unguessable opaque token.
func NewEditToken() string {
	return uuid.NewString() + uuid.NewString()[:8]
}

// ProductPreference is one phone-model price/interest setting belonging to a
// Preference. The set is replaced wholesale on every submission or import.
type ProductPreference struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	PreferenceID uint   `gorm:"not null;index" json:"preference_id"`
	ProductName  string `gorm:"size:100;not null" json:"product_name"`
	MaxPrice     int    `gorm:"not null" json:"max_price"`
	IsPreferred  bool   `gorm:"default:true" json:"is_preferred"`
}

func (ProductPreference) TableName() string {
	return "product_preferences"
}
