package database

import (
	"context"
	"time"

	"tecnomadas-portal/internal/models"
)

// PriceRange is one bucket of the active listing price distribution (soles)
type PriceRange struct {
	RangeLabel string  `json:"range_label"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
	Count      int64   `json:"count"`
}

// CatalogStats summarizes the catalog for the admin dashboard
type CatalogStats struct {
	Properties struct {
		Active   int64            `json:"active"`
		Inactive int64            `json:"inactive"`
		Total    int64            `json:"total"`
		ByType   map[string]int64 `json:"by_type"`
	} `json:"properties"`
	Inquiries struct {
		Total        int64            `json:"total"`
		ByStatus     map[string]int64 `json:"by_status"`
		Last7Days    int64            `json:"last_7_days"`
		General      int64            `json:"general"`
		AboutListing int64            `json:"about_listing"`
	} `json:"inquiries"`
	Modals struct {
		Total  int64 `json:"total"`
		Active int64 `json:"active"`
	} `json:"modals"`
	ChangesLast7Days  int64        `json:"changes_last_7_days"`
	PriceDistribution []PriceRange `json:"price_distribution"`
}

var priceRanges = []PriceRange{
	{RangeLabel: "hasta S/ 100k", MinPrice: 0, MaxPrice: 100000},
	{RangeLabel: "S/ 100k - 250k", MinPrice: 100000, MaxPrice: 250000},
	{RangeLabel: "S/ 250k - 500k", MinPrice: 250000, MaxPrice: 500000},
	{RangeLabel: "S/ 500k - 1M", MinPrice: 500000, MaxPrice: 1000000},
	{RangeLabel: "más de S/ 1M", MinPrice: 1000000, MaxPrice: 1e15},
}

type groupCount struct {
	Grp   string
	Count int64
}

// Stats gathers catalog counters
func (gdb *GormDB) Stats(ctx context.Context) (*CatalogStats, error) {
	db := gdb.db.WithContext(ctx)
	stats := &CatalogStats{}
	weekAgo := gdb.now().Add(-7 * 24 * time.Hour)

	// Property counts by status
	if err := db.Model(&models.Property{}).Where("active = ?", true).Count(&stats.Properties.Active).Error; err != nil {
		return nil, Classify(err, "property stats")
	}
	if err := db.Model(&models.Property{}).Where("active = ?", false).Count(&stats.Properties.Inactive).Error; err != nil {
		return nil, Classify(err, "property stats")
	}
	stats.Properties.Total = stats.Properties.Active + stats.Properties.Inactive

	var byType []groupCount
	if err := db.Model(&models.Property{}).
		Select("type AS grp, count(*) AS count").
		Where("active = ?", true).
		Group("type").
		Scan(&byType).Error; err != nil {
		return nil, Classify(err, "property stats")
	}
	stats.Properties.ByType = toMap(byType)

	// Inquiries
	var byStatus []groupCount
	if err := db.Model(&models.Inquiry{}).
		Select("status AS grp, count(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, Classify(err, "inquiry stats")
	}
	stats.Inquiries.ByStatus = toMap(byStatus)
	for _, c := range byStatus {
		stats.Inquiries.Total += c.Count
	}
	if err := db.Model(&models.Inquiry{}).Where("created_at >= ?", weekAgo).Count(&stats.Inquiries.Last7Days).Error; err != nil {
		return nil, Classify(err, "inquiry stats")
	}
	if err := db.Model(&models.Inquiry{}).Where("property_id IS NULL OR property_id = ''").Count(&stats.Inquiries.General).Error; err != nil {
		return nil, Classify(err, "inquiry stats")
	}
	stats.Inquiries.AboutListing = stats.Inquiries.Total - stats.Inquiries.General

	// Modals
	if err := db.Model(&models.ModalConfig{}).Count(&stats.Modals.Total).Error; err != nil {
		return nil, Classify(err, "modal stats")
	}
	if err := db.Model(&models.ModalConfig{}).Where("active = ?", true).Count(&stats.Modals.Active).Error; err != nil {
		return nil, Classify(err, "modal stats")
	}

	if err := db.Model(&models.PropertyChange{}).Where("detected_at >= ?", weekAgo).Count(&stats.ChangesLast7Days).Error; err != nil {
		return nil, Classify(err, "change stats")
	}

	stats.PriceDistribution = make([]PriceRange, len(priceRanges))
	copy(stats.PriceDistribution, priceRanges)
	for i := range stats.PriceDistribution {
		r := &stats.PriceDistribution[i]
		if err := db.Model(&models.Property{}).
			Where("active = ? AND price >= ? AND price < ?", true, r.MinPrice, r.MaxPrice).
			Count(&r.Count).Error; err != nil {
			return nil, Classify(err, "price distribution")
		}
	}

	return stats, nil
}

func toMap(rows []groupCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.Grp] = r.Count
	}
	return m
}
