package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrichmentKind selects which product fields an enrichment run rewrites.
type EnrichmentKind string

const (
	EnrichmentKindTitle       EnrichmentKind = "title"
	EnrichmentKindDescription EnrichmentKind = "description"
	EnrichmentKindCategory    EnrichmentKind = "category"
	EnrichmentKindFull        EnrichmentKind = "full"
)

type EnrichmentStatus string

const (
	EnrichmentStatusSuccess EnrichmentStatus = "success"
	EnrichmentStatusFailed  EnrichmentStatus = "failed"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

// StringList is a JSON-encoded list of strings, used for image URL columns.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

// EnrichmentLog records one AI enrichment attempt and its result.
type EnrichmentLog struct {
	ID        string `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID   string `json:"owner_id" gorm:"not null;index"`
	ProductID string `json:"product_id" gorm:"type:uuid;not null;index"`

	Kind       EnrichmentKind `json:"kind" gorm:"not null"`
	Model      string         `json:"model"`
	Input      JSONB          `json:"input" gorm:"type:jsonb"`
	Output     JSONB          `json:"output" gorm:"type:jsonb"`
	DurationMs int64          `json:"duration_ms"`

	Status       EnrichmentStatus `json:"status" gorm:"default:success"`
	ErrorMessage *string          `json:"error_message"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (e *EnrichmentLog) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
