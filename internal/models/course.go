package models

import (
	"time"

	"github.com/lib/pq"
)

// Course is one catalog entry. Code is stored normalized.
type Course struct {
	Code          string         `db:"code" json:"code"`
	Name          string         `db:"name" json:"name"`
	Credits       int            `db:"credits" json:"credits"`
	Level         int            `db:"level" json:"level"`
	Prerequisites pq.StringArray `db:"prerequisites" json:"prerequisites"`
	Catalog       string         `db:"catalog" json:"catalog"`
	CreatedAt     time.Time      `db:"created_at" json:"-"`
	UpdatedAt     time.Time      `db:"updated_at" json:"-"`
}

// SameContent reports whether two records carry identical course data.
// Catalog membership is not compared.
func (c Course) SameContent(other Course) bool {
	if c.Name != other.Name || c.Credits != other.Credits || c.Level != other.Level {
		return false
	}
	if len(c.Prerequisites) != len(other.Prerequisites) {
		return false
	}
	for i := range c.Prerequisites {
		if c.Prerequisites[i] != other.Prerequisites[i] {
			return false
		}
	}
	return true
}

// HistoryStatus classifies a transcript record.
type HistoryStatus string

const (
	HistoryApproved   HistoryStatus = "approved"
	HistoryFailed     HistoryStatus = "failed"
	HistoryInProgress HistoryStatus = "in_progress"
	HistoryOther      HistoryStatus = "other"
)

// HistoryRecord is one course attempt from the official transcript.
type HistoryRecord struct {
	Course          string        `json:"course"`
	Period          string        `json:"period"`
	Status          HistoryStatus `json:"status"`
	RawStatus       string        `json:"raw_status"`
	NRC             string        `json:"nrc,omitempty"`
	InscriptionType string        `json:"inscription_type,omitempty"`
	Excluded        bool          `json:"excluded"`
}
