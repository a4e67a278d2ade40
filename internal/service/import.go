package service

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/flipnotify/backend/internal/models"
)

var (
	// ErrUnsupportedFormat rejects uploads that are neither bundle, flat CSV
	// nor workbook. No best-effort parsing is attempted.
	ErrUnsupportedFormat = errors.New("unsupported file type: expected .zip, .csv or .xlsx")

	// ErrBadBundleVersion rejects bundles whose manifest declares a format
	// this importer does not understand.
	ErrBadBundleVersion = errors.New("unsupported export bundle version")
)

// Tolerated expiry_date layouts, tried in order.
var expiryLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", "02-01-2006"}

// ImportResult aggregates the outcome of an import batch.
type ImportResult struct {
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Errors  int      `json:"errors"`
	Log     []string `json:"log"`
}

func (r *ImportResult) logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	log.Printf("import: %s", line)
	r.Log = append(r.Log, line)
}

// importUser is one parsed row of the users table.
type importUser struct {
	UniqueUserID string
	UserID       string
	UserName     string
	Location     string
	Suburb       string
	Activation   string
	ExpiryDate   string
	FixedLat     string
	FixedLon     string
	Flags        modeFlags
	// Inline products column of the flat CSV; empty for bundle/workbook rows.
	InlineProducts string
}

// importProduct is one parsed row of the products table.
type importProduct struct {
	Name      string
	MaxPrice  string
	Preferred string
}

// Importer consumes tabular exports and reconciles them against existing
// preferences. Each input row commits independently; a malformed row only
// costs that row.
type Importer struct {
	db      *gorm.DB
	catalog *models.Catalog
}

func NewImporter(db *gorm.DB, catalog *models.Catalog) *Importer {
	return &Importer{db: db, catalog: catalog}
}

// Import dispatches on the uploaded filename extension.
func (im *Importer) Import(filename string, data []byte) (*ImportResult, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return im.importBundle(data)
	case ".csv":
		return im.importFlatCSV(data)
	case ".xlsx":
		return im.importWorkbook(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// header index lookup for csv.DictReader-style access.
type headerIndex map[string]int

func indexHeader(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, name := range header {
		// The flat CSV carries a UTF-8 BOM on its first column name.
		idx[strings.TrimPrefix(strings.TrimSpace(name), "\uFEFF")] = i
	}
	return idx
}

func (h headerIndex) get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseFlag decodes a mode-flag column, defaulting to 0 with a warning when
// the cell is non-empty but unparseable.
func parseFlag(result *ImportResult, uid, column, value string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		result.logf("row %s: cannot parse %s value %q, defaulting to 0", uid, column, value)
		return 0
	}
	return n
}

func parseUserRecord(result *ImportResult, idx headerIndex, record []string) importUser {
	uid := idx.get(record, "unique_userid")
	return importUser{
		UniqueUserID:   uid,
		UserID:         idx.get(record, "user_id"),
		UserName:       idx.get(record, "user_name"),
		Location:       idx.get(record, "location"),
		Suburb:         idx.get(record, "suburb"),
		Activation:     idx.get(record, "activation_status"),
		ExpiryDate:     idx.get(record, "expiry_date"),
		FixedLat:       idx.get(record, "fixed_lat"),
		FixedLon:       idx.get(record, "fixed_lon"),
		InlineProducts: idx.get(record, "products"),
		Flags: modeFlags{
			OnlyPreferred: parseFlag(result, uid, "mode_only_preferred", idx.get(record, "mode_only_preferred")),
			NonGoodDeals:  parseFlag(result, uid, "non_good_deals", idx.get(record, "non_good_deals")),
			GoodDeals:     parseFlag(result, uid, "good_deals", idx.get(record, "good_deals")),
			NearGoodDeals: parseFlag(result, uid, "near_good_deals", idx.get(record, "near_good_deals")),
		},
	}
}

func readCSVTable(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// importBundle parses the canonical ZIP layout: users.csv plus an optional
// products.csv keyed by unique_userid. The manifest, when present, must
// declare a supported version.
func (im *Importer) importBundle(data []byte) (*ImportResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("cannot read ZIP archive: %w", err)
	}

	contents := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot open %s in archive: %w", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read %s in archive: %w", f.Name, err)
		}
		contents[f.Name] = body
	}

	if manifest, ok := contents["manifest.txt"]; ok {
		if err := checkManifest(manifest); err != nil {
			return nil, err
		}
	}

	usersData, ok := contents["users.csv"]
	if !ok {
		return nil, errors.New("bundle is missing users.csv")
	}

	result := &ImportResult{}

	users, err := im.parseUserTable(result, usersData)
	if err != nil {
		return nil, err
	}

	productsByUID := map[string][]importProduct{}
	if productsData, ok := contents["products.csv"]; ok {
		productsByUID, err = parseProductTable(productsData)
		if err != nil {
			return nil, err
		}
	}

	im.reconcile(result, users, productsByUID)
	return result, nil
}

func checkManifest(manifest []byte) error {
	for _, line := range strings.Split(string(manifest), "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(key) != "version" {
			continue
		}
		if strings.TrimSpace(value) != exportFormatVersion {
			return fmt.Errorf("%w: %s", ErrBadBundleVersion, strings.TrimSpace(value))
		}
		return nil
	}
	// Manifest without a version line is treated as the current layout.
	return nil
}

func (im *Importer) parseUserTable(result *ImportResult, data []byte) ([]importUser, error) {
	rows, err := readCSVTable(data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse users table: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("users table is empty")
	}

	idx := indexHeader(rows[0])
	if _, ok := idx["unique_userid"]; !ok {
		return nil, errors.New("users table has no unique_userid column")
	}

	users := make([]importUser, 0, len(rows)-1)
	for _, record := range rows[1:] {
		users = append(users, parseUserRecord(result, idx, record))
	}
	return users, nil
}

func parseProductTable(data []byte) (map[string][]importProduct, error) {
	rows, err := readCSVTable(data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse products table: %w", err)
	}
	if len(rows) == 0 {
		return map[string][]importProduct{}, nil
	}

	idx := indexHeader(rows[0])
	byUID := map[string][]importProduct{}
	for _, record := range rows[1:] {
		uid := idx.get(record, "unique_userid")
		if uid == "" {
			continue
		}
		byUID[uid] = append(byUID[uid], importProduct{
			Name:      idx.get(record, "name"),
			MaxPrice:  idx.get(record, "max_price"),
			Preferred: idx.get(record, "preferred"),
		})
	}
	return byUID, nil
}

// importFlatCSV parses the single-file fallback with its inline products
// column.
func (im *Importer) importFlatCSV(data []byte) (*ImportResult, error) {
	result := &ImportResult{}
	users, err := im.parseUserTable(result, data)
	if err != nil {
		return nil, err
	}
	im.reconcile(result, users, nil)
	return result, nil
}

// importWorkbook parses the Users and Products sheets of an XLSX export.
func (im *Importer) importWorkbook(data []byte) (*ImportResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot read workbook: %w", err)
	}
	defer f.Close()

	userRows, err := f.GetRows("Users")
	if err != nil {
		return nil, errors.New("workbook is missing the Users sheet")
	}
	if len(userRows) == 0 {
		return nil, errors.New("Users sheet is empty")
	}

	result := &ImportResult{}
	idx := indexHeader(userRows[0])
	if _, ok := idx["unique_userid"]; !ok {
		return nil, errors.New("Users sheet has no unique_userid column")
	}

	users := make([]importUser, 0, len(userRows)-1)
	for _, record := range userRows[1:] {
		users = append(users, parseUserRecord(result, idx, record))
	}

	productsByUID := map[string][]importProduct{}
	if productRows, err := f.GetRows("Products"); err == nil && len(productRows) > 0 {
		pidx := indexHeader(productRows[0])
		for _, record := range productRows[1:] {
			uid := pidx.get(record, "unique_userid")
			if uid == "" {
				continue
			}
			productsByUID[uid] = append(productsByUID[uid], importProduct{
				Name:      pidx.get(record, "name"),
				MaxPrice:  pidx.get(record, "max_price"),
				Preferred: pidx.get(record, "preferred"),
			})
		}
	}

	im.reconcile(result, users, productsByUID)
	return result, nil
}

// reconcile applies the row-by-row update-or-create contract. Every row
// commits in its own transaction so one malformed row cannot poison the
// batch.
func (im *Importer) reconcile(result *ImportResult, users []importUser, productsByUID map[string][]importProduct) {
	for _, user := range users {
		// Sentinel and empty identifiers are instruction rows, not data.
		if user.UniqueUserID == "" || strings.HasPrefix(user.UniqueUserID, "---") {
			continue
		}

		created, err := im.reconcileRow(result, user, productsByUID[user.UniqueUserID])
		if err != nil {
			result.Errors++
			result.logf("row %s: %v", user.UniqueUserID, err)
			continue
		}
		if created {
			result.Added++
		} else {
			result.Updated++
		}
	}
}

func (im *Importer) reconcileRow(result *ImportResult, user importUser, products []importProduct) (created bool, err error) {
	if user.Location == "" {
		return false, errors.New("location is required but was empty")
	}

	mode := modeForFlags(user.Flags)

	err = im.db.Transaction(func(tx *gorm.DB) error {
		pref, found := im.lookup(tx, user.UniqueUserID)
		if found {
			pref.Location = user.Location
			pref.Suburb = user.Suburb
			pref.NotificationMode = mode
		} else {
			created = true
			pref = &models.Preference{
				UniqueUserID:     user.UniqueUserID,
				Location:         user.Location,
				Suburb:           user.Suburb,
				NotificationMode: mode,
				ActivationStatus: true,
			}
		}

		im.applyMetadata(result, pref, user)

		if created {
			// Flush to obtain the identity before attaching children.
			if err := tx.Create(pref).Error; err != nil {
				return err
			}
		} else {
			if pref.UniqueUserID == "" {
				pref.UniqueUserID = user.UniqueUserID
			}
			if err := tx.Save(pref).Error; err != nil {
				return err
			}
		}

		return im.replaceProducts(result, tx, pref, user, products)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// lookup finds the reconciliation target: exact unique_userid match first,
// then the user_<N>/telegram_<N> numeric fallback. The precedence order is
// load-bearing; an explicit unique_userid must win over the pattern parse.
func (im *Importer) lookup(tx *gorm.DB, uid string) (*models.Preference, bool) {
	var pref models.Preference
	if err := tx.Where("unique_userid = ?", uid).First(&pref).Error; err == nil {
		return &pref, true
	}

	var numeric string
	switch {
	case strings.HasPrefix(uid, "user_"):
		numeric = strings.TrimPrefix(uid, "user_")
	case strings.HasPrefix(uid, "telegram_"):
		numeric = strings.TrimPrefix(uid, "telegram_")
	default:
		return nil, false
	}

	id, err := strconv.Atoi(numeric)
	if err != nil {
		return nil, false
	}
	if err := tx.First(&pref, id).Error; err != nil {
		return nil, false
	}
	return &pref, true
}

// applyMetadata copies the admin-editable columns onto the target,
// tolerating sloppy spreadsheet values.
func (im *Importer) applyMetadata(result *ImportResult, pref *models.Preference, user importUser) {
	if user.UserID != "" {
		pref.UserID = user.UserID
	}
	if user.UserName != "" {
		pref.UserName = user.UserName
	}
	pref.FixedLat = user.FixedLat
	pref.FixedLon = user.FixedLon

	switch user.Activation {
	case "1":
		pref.ActivationStatus = true
	case "0":
		pref.ActivationStatus = false
	}

	if user.ExpiryDate == "" {
		pref.ExpiryDate = nil
		return
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, user.ExpiryDate); err == nil {
			pref.ExpiryDate = &t
			return
		}
	}
	result.logf("row %s: cannot parse expiry date %q, leaving unset", user.UniqueUserID, user.ExpiryDate)
}

// replaceProducts deletes the existing child set unconditionally and
// recreates it from the products table rows and/or the inline column. An
// empty outcome is backfilled with the full catalog at default prices.
func (im *Importer) replaceProducts(result *ImportResult, tx *gorm.DB, pref *models.Preference, user importUser, products []importProduct) error {
	if err := tx.Where("preference_id = ?", pref.ID).Delete(&models.ProductPreference{}).Error; err != nil {
		return err
	}

	count := 0
	for _, p := range products {
		ok, err := im.createProduct(result, tx, pref, p.Name, p.MaxPrice, p.Preferred)
		if err != nil {
			return err
		}
		if ok {
			count++
		}
	}

	if user.InlineProducts != "" {
		for _, tuple := range strings.Split(user.InlineProducts, inlineProductSep) {
			if tuple == "" || !strings.Contains(tuple, ":") {
				continue
			}
			parts := strings.Split(tuple, ":")
			if len(parts) < 4 {
				result.logf("row %s: invalid product tuple %q", user.UniqueUserID, tuple)
				continue
			}
			// name:min_price:max_price:preferred; min_price is the legacy
			// placeholder and ignored.
			ok, err := im.createProduct(result, tx, pref, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[2]), strings.TrimSpace(parts[3]))
			if err != nil {
				return err
			}
			if ok {
				count++
			}
		}
	}

	if count == 0 {
		result.logf("row %s: no product rows, filling catalog defaults", user.UniqueUserID)
		for _, name := range im.catalog.Models() {
			row := models.ProductPreference{
				PreferenceID: pref.ID,
				ProductName:  name,
				MaxPrice:     im.catalog.DefaultPrice(name),
				IsPreferred:  true,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// createProduct validates and stores one product row. Unknown names are
// skipped, never fatal; unparseable prices fall back to the catalog default
// and mark the row preferred.
func (im *Importer) createProduct(result *ImportResult, tx *gorm.DB, pref *models.Preference, name, maxPrice, preferred string) (bool, error) {
	if !im.catalog.Contains(name) {
		result.logf("row %s: skipping unknown product name %q", pref.ExternalID(), name)
		return false, nil
	}

	row := models.ProductPreference{
		PreferenceID: pref.ID,
		ProductName:  name,
	}

	if price, err := strconv.ParseFloat(maxPrice, 64); err == nil && price >= 0 {
		row.MaxPrice = int(price)
		row.IsPreferred = preferredFlag(preferred)
	} else {
		result.logf("row %s: cannot parse price %q for %q, using default", pref.ExternalID(), maxPrice, name)
		row.MaxPrice = im.catalog.DefaultPrice(name)
		row.IsPreferred = true
	}

	if err := tx.Create(&row).Error; err != nil {
		return false, err
	}
	return true, nil
}

func preferredFlag(value string) bool {
	n, err := strconv.Atoi(value)
	return err == nil && n == 1
}
