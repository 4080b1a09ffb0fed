package database

import (
	"adgate/models"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// MetricPageViews counts rendered landing pages.
const MetricPageViews = "page_views"

// GetMetric returns a persisted counter value. Missing keys read as zero.
func GetMetric(key string) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return 0, errors.New("empty metric key")
	}

	var m models.Metric
	if err := DB.First(&m, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return m.Value, nil
}

// IncrementMetric adds one to a counter and returns the new value. The
// increment is a single UPDATE so concurrent calls never lose counts.
func IncrementMetric(key string) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return 0, errors.New("empty metric key")
	}

	res := DB.Model(&models.Metric{}).Where("key = ?", key).
		Update("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if err := DB.Create(&models.Metric{Key: key, Value: 1}).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}

	return GetMetric(key)
}
