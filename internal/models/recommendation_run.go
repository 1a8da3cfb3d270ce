package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/datemeal/backend/internal/types"
)

// Run kinds
const (
	RunKindRecommend    = "recommend"
	RunKindRefine       = "refine"
	RunKindConversation = "conversation"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}
	b, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, a)
}

// JSONBRestaurants stores a recommendation list as JSONB
type JSONBRestaurants []types.GroundedRestaurant

// Value implements the driver.Valuer interface
func (r JSONBRestaurants) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (r *JSONBRestaurants) Scan(value interface{}) error {
	if value == nil {
		*r = JSONBRestaurants{}
		return nil
	}
	b, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, r)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unsupported JSON column type %T", value)
}

// RecommendationRun records one pipeline invocation served over HTTP
type RecommendationRun struct {
	ID              uuid.UUID        `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt       time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
	Kind            string           `gorm:"size:20;not null" json:"kind"` // recommend, refine, conversation
	Preferences     JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"preferences"`
	Feedback        string           `gorm:"type:text" json:"feedback,omitempty"`
	RestaurantNames JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"restaurant_names"`
	Recommendations JSONBRestaurants `gorm:"type:jsonb;not null;default:'[]'" json:"recommendations"`
	Reasoning       string           `gorm:"type:text" json:"reasoning"`
	Status          string           `gorm:"size:20;not null" json:"status"` // ok, fallback, offline, empty
	ClientIP        string           `gorm:"size:64" json:"-"`
}

// TableName returns the table name for the RecommendationRun model
func (RecommendationRun) TableName() string {
	return "recommendation_runs"
}

// BeforeCreate assigns an ID when none is set
func (r *RecommendationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
