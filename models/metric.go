package models

// Metric is a small persistent counter (page views and the like).
type Metric struct {
	Key   string `gorm:"primaryKey;size:64" json:"key"`
	Value int64  `gorm:"not null;default:0" json:"value"`
}

func (Metric) TableName() string {
	return "metrics"
}
