package service

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/flipnotify/backend/internal/models"
)

// Export format identification embedded in the canonical bundle so the
// importer can dispatch instead of guessing.
const (
	exportFormatName    = "flipnotify-export"
	exportFormatVersion = "2"
)

// The inline products grammar of the flat CSV: name:min_price:max_price:preferred
// tuples joined by ";". This is the only inline grammar the importer accepts.
const inlineProductSep = ";"

// legacyMinPrice fills the min_price column; the field is a placeholder kept
// for compatibility with the downstream notifier's sheet layout.
const legacyMinPrice = 100

var userHeader = []string{
	"unique_userid", "user_id", "user_name", "location", "activation_status",
	"expiry_date", "fixed_lat", "fixed_lon", "password",
	"mode_only_preferred", "non_good_deals", "good_deals", "near_good_deals",
}

var flatHeader = []string{
	"unique_userid", "user_id", "user_name", "location", "activation_status",
	"expiry_date", "fixed_lat", "fixed_lon", "password",
	"products", "keywords", "excluded_words", "resellers",
	"mode_only_preferred", "non_good_deals", "good_deals", "near_good_deals",
}

var productHeader = []string{"unique_userid", "name", "min_price", "max_price", "preferred"}

// Exporter serializes preferences into the supported tabular formats. All
// outputs are materialized fully in memory; data volumes are small.
type Exporter struct {
	catalog *models.Catalog
}

func NewExporter(catalog *models.Catalog) *Exporter {
	return &Exporter{catalog: catalog}
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func expiryString(pref *models.Preference) string {
	if pref.ExpiryDate == nil {
		return ""
	}
	return pref.ExpiryDate.Format("2006-01-02")
}

// userRow flattens a preference into the users table layout. The password
// column is part of the historical layout and always empty.
func (e *Exporter) userRow(pref *models.Preference) []string {
	flags := flagsForMode(pref.NotificationMode)
	return []string{
		pref.ExternalID(),
		pref.UserID,
		pref.UserName,
		pref.Location,
		boolFlag(pref.ActivationStatus),
		expiryString(pref),
		pref.FixedLat,
		pref.FixedLon,
		"",
		strconv.Itoa(flags.OnlyPreferred),
		strconv.Itoa(flags.NonGoodDeals),
		strconv.Itoa(flags.GoodDeals),
		strconv.Itoa(flags.NearGoodDeals),
	}
}

func (e *Exporter) productRows(pref *models.Preference) [][]string {
	rows := make([][]string, 0, len(pref.Products))
	for _, p := range pref.Products {
		rows = append(rows, []string{
			pref.ExternalID(),
			p.ProductName,
			strconv.Itoa(legacyMinPrice),
			strconv.Itoa(p.MaxPrice),
			boolFlag(p.IsPreferred),
		})
	}
	return rows
}

func (e *Exporter) inlineProducts(pref *models.Preference) string {
	parts := make([]string, 0, len(pref.Products))
	for _, p := range pref.Products {
		parts = append(parts, fmt.Sprintf("%s:%d:%d:%s",
			p.ProductName, legacyMinPrice, p.MaxPrice, boolFlag(p.IsPreferred)))
	}
	return strings.Join(parts, inlineProductSep)
}

func timestampSuffix() string {
	return time.Now().Format("20060102_150405")
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportBundle produces the canonical versioned ZIP bundle: users and
// products tables plus the auxiliary default-catalog tables, a manifest and
// a README.
func (e *Exporter) ExportBundle(prefs []models.Preference) ([]byte, string, error) {
	userRows := [][]string{userHeader}
	productRows := [][]string{productHeader}
	keywordRows := [][]string{{"unique_userid", "keyword"}}
	excludedRows := [][]string{{"unique_userid", "excluded_word"}}
	resellerRows := [][]string{{"unique_userid", "reseller_name"}}

	for i := range prefs {
		pref := &prefs[i]
		userRows = append(userRows, e.userRow(pref))
		productRows = append(productRows, e.productRows(pref)...)
		for _, kw := range e.catalog.Keywords() {
			keywordRows = append(keywordRows, []string{pref.ExternalID(), kw})
		}
		for _, word := range e.catalog.ExcludedWords() {
			excludedRows = append(excludedRows, []string{pref.ExternalID(), word})
		}
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{"users.csv", userRows},
		{"products.csv", productRows},
		{"keywords.csv", keywordRows},
		{"excluded_words.csv", excludedRows},
		{"resellers.csv", resellerRows},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	manifest := fmt.Sprintf("format: %s\nversion: %s\ngenerated: %s\n",
		exportFormatName, exportFormatVersion, time.Now().UTC().Format(time.RFC3339))
	mw, err := zw.Create("manifest.txt")
	if err != nil {
		return nil, "", err
	}
	if _, err := mw.Write([]byte(manifest)); err != nil {
		return nil, "", err
	}

	for _, f := range files {
		data, err := writeCSV(f.rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(data); err != nil {
			return nil, "", err
		}
	}

	readme := `Flipnotify Data Export

This ZIP file contains the following CSV files:

1. users.csv - Main user information and notification modes
2. products.csv - Product preferences (min_price is a fixed placeholder)
3. keywords.csv - Default search keywords per user
4. excluded_words.csv - Default excluded words per user
5. resellers.csv - Template for adding preferred resellers

For importing, make sure unique_userid values match across all files.
`
	rw, err := zw.Create("README.txt")
	if err != nil {
		return nil, "", err
	}
	if _, err := rw.Write([]byte(readme)); err != nil {
		return nil, "", err
	}

	if err := zw.Close(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("flipnotify_data_%s.zip", timestampSuffix())
	return buf.Bytes(), filename, nil
}

// ExportFlatCSV produces the single-file fallback: one row per preference
// with the product set inlined. Encoded with a UTF-8 BOM so Excel opens it
// correctly.
func (e *Exporter) ExportFlatCSV(prefs []models.Preference) ([]byte, string, error) {
	rows := [][]string{flatHeader}
	for i := range prefs {
		pref := &prefs[i]
		flags := flagsForMode(pref.NotificationMode)
		rows = append(rows, []string{
			pref.ExternalID(),
			pref.UserID,
			pref.UserName,
			pref.Location,
			boolFlag(pref.ActivationStatus),
			expiryString(pref),
			pref.FixedLat,
			pref.FixedLon,
			"",
			e.inlineProducts(pref),
			"",
			"",
			"",
			strconv.Itoa(flags.OnlyPreferred),
			strconv.Itoa(flags.NonGoodDeals),
			strconv.Itoa(flags.GoodDeals),
			strconv.Itoa(flags.NearGoodDeals),
		})
	}

	data, err := writeCSV(rows)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	buf.Write(data)

	filename := fmt.Sprintf("flipnotify_users_%s.csv", timestampSuffix())
	return buf.Bytes(), filename, nil
}

// ExportWorkbook produces an XLSX workbook with Users and Products sheets
// mirroring the bundle tables.
func (e *Exporter) ExportWorkbook(prefs []models.Preference) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Users")
	if _, err := f.NewSheet("Products"); err != nil {
		return nil, "", err
	}

	writeSheet := func(sheet string, rows [][]string) error {
		for r, row := range rows {
			for c, value := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					return err
				}
			}
		}
		return nil
	}

	userRows := [][]string{userHeader}
	productRows := [][]string{productHeader}
	for i := range prefs {
		pref := &prefs[i]
		userRows = append(userRows, e.userRow(pref))
		productRows = append(productRows, e.productRows(pref)...)
	}

	if err := writeSheet("Users", userRows); err != nil {
		return nil, "", err
	}
	if err := writeSheet("Products", productRows); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("flipnotify_data_%s.xlsx", timestampSuffix())
	return buf.Bytes(), filename, nil
}

// ExportSingleCSV produces the users+products rows of one preference as a
// single CSV, the per-response download of the admin view.
func (e *Exporter) ExportSingleCSV(pref *models.Preference) ([]byte, string, error) {
	rows := [][]string{userHeader, e.userRow(pref)}
	rows = append(rows, e.productRows(pref)...)

	data, err := writeCSV(rows)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("flipnotify_response_%d_%s.csv", pref.ID, timestampSuffix())
	return data, filename, nil
}
