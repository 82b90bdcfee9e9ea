package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONMap stores loosely-structured extraction metadata in a jsonb column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("jsonmap: unsupported source type")
	}
}

// StringSlice is a jsonb-backed string list.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("stringslice: unsupported source type")
	}
}

// JobPosting is the persisted form of an extracted record.
type JobPosting struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	Source   string `gorm:"index" json:"source"`
	Title    string `gorm:"not null" json:"title"`
	Company  string `gorm:"not null" json:"company"`
	Location string `json:"location"`

	SalaryMin           *float64 `json:"salary_min"`
	SalaryMax           *float64 `json:"salary_max"`
	SalaryPeriodAssumed string   `json:"salary_period_assumed,omitempty"`
	SalaryText          string   `json:"salary_text,omitempty"`

	Description string `json:"description,omitempty"`
	URL         string `gorm:"uniqueIndex" json:"url"`
	ApplyURL    string `json:"apply_url,omitempty"`

	JobType         string      `json:"job_type"`
	ExperienceLevel string      `json:"experience_level"`
	IsRemote        bool        `json:"is_remote"`
	Tags            StringSlice `gorm:"type:jsonb" json:"tags"`

	ExtractedData JSONMap `gorm:"type:jsonb" json:"extracted_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *JobPosting) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
