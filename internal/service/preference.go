package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/flipnotify/backend/internal/models"
)

var (
	ErrLocationRequired = errors.New("location is required")
	ErrUnknownMode      = errors.New("unknown notification mode")
	ErrUnknownProduct   = errors.New("unknown product name")
	ErrNegativePrice    = errors.New("max price must not be negative")
)

// ProductInput is one phone-model row of a form submission.
type ProductInput struct {
	Name        string `json:"name"`
	MaxPrice    int    `json:"max_price"`
	IsPreferred bool   `json:"is_preferred"`
}

// PreferenceInput carries the fields a user can set through the form.
type PreferenceInput struct {
	Location         string         `json:"location"`
	Suburb           string         `json:"suburb"`
	NotificationMode string         `json:"notification_mode"`
	Products         []ProductInput `json:"products"`
}

// PreferenceFilter narrows admin listings.
type PreferenceFilter struct {
	Location         string
	NotificationMode string
	Page             int
	PerPage          int
}

// DashboardStats aggregates submissions for the admin dashboard.
type DashboardStats struct {
	TotalSubmissions  int64               `json:"total_submissions"`
	ModeCounts        map[string]int64    `json:"mode_counts"`
	PopularModels     []ModelCount        `json:"popular_models"`
	RecentSubmissions []models.Preference `json:"recent_submissions"`
}

// ModelCount is a product name with its preferred count.
type ModelCount struct {
	ProductName string `json:"product_name"`
	Count       int64  `json:"count"`
}

// PreferenceService owns all reads and writes of preferences and their
// product rows.
type PreferenceService struct {
	db      *gorm.DB
	catalog *models.Catalog
}

func NewPreferenceService(db *gorm.DB, catalog *models.Catalog) *PreferenceService {
	return &PreferenceService{db: db, catalog: catalog}
}

func (s *PreferenceService) validate(input *PreferenceInput) error {
	if strings.TrimSpace(input.Location) == "" {
		return ErrLocationRequired
	}
	if !models.IsValidMode(input.NotificationMode) {
		return fmt.Errorf("%w: %q", ErrUnknownMode, input.NotificationMode)
	}
	for _, p := range input.Products {
		if !s.catalog.Contains(p.Name) {
			return fmt.Errorf("%w: %q", ErrUnknownProduct, p.Name)
		}
		if p.MaxPrice < 0 {
			return fmt.Errorf("%w: %q", ErrNegativePrice, p.Name)
		}
	}
	return nil
}

// Create stores a new preference with its full product set and returns it
// with the generated edit token.
func (s *PreferenceService) Create(input *PreferenceInput) (*models.Preference, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	pref := &models.Preference{
		Location:         strings.TrimSpace(input.Location),
		Suburb:           strings.TrimSpace(input.Suburb),
		NotificationMode: input.NotificationMode,
		ActivationStatus: true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pref).Error; err != nil {
			return err
		}
		return s.replaceProducts(tx, pref.ID, input.Products)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByToken(pref.EditToken)
}

// GetByToken fetches a preference by its edit token.
func (s *PreferenceService) GetByToken(token string) (*models.Preference, error) {
	var pref models.Preference
	if err := s.db.Preload("Products").Where("edit_token = ?", token).First(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

// UpdateByToken updates the mutable fields of the preference owning the edit
// token and replaces its product set wholesale.
func (s *PreferenceService) UpdateByToken(token string, input *PreferenceInput) (*models.Preference, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	pref, err := s.GetByToken(token)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		pref.Location = strings.TrimSpace(input.Location)
		pref.Suburb = strings.TrimSpace(input.Suburb)
		pref.NotificationMode = input.NotificationMode
		if err := tx.Model(pref).Updates(map[string]interface{}{
			"location":          pref.Location,
			"suburb":            pref.Suburb,
			"notification_mode": pref.NotificationMode,
			"updated_at":        time.Now(),
		}).Error; err != nil {
			return err
		}
		return s.replaceProducts(tx, pref.ID, input.Products)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByToken(token)
}

// TelegramUserID derives the stable external identifier for a Telegram user.
func TelegramUserID(userID string) string {
	return "telegram_" + userID
}

// GetTelegram returns the preference belonging to a Telegram user, or
// gorm.ErrRecordNotFound.
func (s *PreferenceService) GetTelegram(userID string) (*models.Preference, error) {
	var pref models.Preference
	err := s.db.Preload("Products").Where("unique_userid = ?", TelegramUserID(userID)).First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// UpsertTelegram creates or updates the preference for a verified Telegram
// identity, recording the identity on the row.
func (s *PreferenceService) UpsertTelegram(userID, userName string, input *PreferenceInput) (*models.Preference, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	pref, err := s.GetTelegram(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pref = &models.Preference{
			UniqueUserID:     TelegramUserID(userID),
			UserID:           userID,
			UserName:         userName,
			ActivationStatus: true,
		}
		if err := s.db.Create(pref).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(pref).Updates(map[string]interface{}{
			"location":          strings.TrimSpace(input.Location),
			"suburb":            strings.TrimSpace(input.Suburb),
			"notification_mode": input.NotificationMode,
			"user_id":           userID,
			"user_name":         userName,
			"updated_at":        time.Now(),
		}).Error; err != nil {
			return err
		}
		return s.replaceProducts(tx, pref.ID, input.Products)
	})
	if err != nil {
		return nil, err
	}

	return s.GetTelegram(userID)
}

// GetByID fetches a preference by its numeric id.
func (s *PreferenceService) GetByID(id uint) (*models.Preference, error) {
	var pref models.Preference
	if err := s.db.Preload("Products").First(&pref, id).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

// Delete removes a preference and its product rows.
func (s *PreferenceService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var pref models.Preference
		if err := tx.First(&pref, id).Error; err != nil {
			return err
		}
		if err := tx.Where("preference_id = ?", id).Delete(&models.ProductPreference{}).Error; err != nil {
			return err
		}
		return tx.Delete(&pref).Error
	})
}

// List returns a page of preferences matching the filter, newest first,
// together with the total match count.
func (s *PreferenceService) List(filter PreferenceFilter) ([]models.Preference, int64, error) {
	query := s.db.Model(&models.Preference{})

	if filter.Location != "" {
		like := "%" + strings.ToLower(filter.Location) + "%"
		query = query.Where("LOWER(location) LIKE ?", like)
	}
	if filter.NotificationMode != "" {
		query = query.Where("notification_mode = ?", filter.NotificationMode)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 10
	}

	var prefs []models.Preference
	err := query.Preload("Products").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&prefs).Error
	if err != nil {
		return nil, 0, err
	}

	return prefs, total, nil
}

// ListAll returns every preference with products, for exports.
func (s *PreferenceService) ListAll() ([]models.Preference, error) {
	var prefs []models.Preference
	if err := s.db.Preload("Products").Order("id").Find(&prefs).Error; err != nil {
		return nil, err
	}
	return prefs, nil
}

// Dashboard aggregates submission statistics.
func (s *PreferenceService) Dashboard() (*DashboardStats, error) {
	stats := &DashboardStats{
		ModeCounts: map[string]int64{
			models.ModeAll:           0,
			models.ModeOnlyPreferred: 0,
			models.ModeNearGoodDeal:  0,
			models.ModeGoodDeal:      0,
		},
	}

	if err := s.db.Model(&models.Preference{}).Count(&stats.TotalSubmissions).Error; err != nil {
		return nil, err
	}

	rows := []struct {
		NotificationMode string
		Count            int64
	}{}
	if err := s.db.Model(&models.Preference{}).
		Select("notification_mode, COUNT(id) AS count").
		Group("notification_mode").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ModeCounts[row.NotificationMode] = row.Count
	}

	if err := s.db.Model(&models.ProductPreference{}).
		Select("product_name, COUNT(id) AS count").
		Where("is_preferred = ?", true).
		Group("product_name").
		Order("count DESC").
		Limit(5).
		Scan(&stats.PopularModels).Error; err != nil {
		return nil, err
	}

	if err := s.db.Preload("Products").
		Order("created_at DESC").
		Limit(5).
		Find(&stats.RecentSubmissions).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// replaceProducts deletes all product rows of a preference and recreates the
// given set. Submissions and imports always replace wholesale, never diff.
func (s *PreferenceService) replaceProducts(tx *gorm.DB, prefID uint, products []ProductInput) error {
	if err := tx.Where("preference_id = ?", prefID).Delete(&models.ProductPreference{}).Error; err != nil {
		return err
	}
	for _, p := range products {
		row := models.ProductPreference{
			PreferenceID: prefID,
			ProductName:  p.Name,
			MaxPrice:     p.MaxPrice,
			IsPreferred:  p.IsPreferred,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
