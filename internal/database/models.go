package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// JSONB is a custom type for JSON columns. Postgres stores it as jsonb,
// sqlite as serialized text.
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
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

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// StringList stores a list of strings as a JSON array column
type StringList []string

// Scan implements the sql.Scanner interface
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

// Value implements the driver.Valuer interface
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

// Vector stores an embedding vector as a JSON array column
type Vector []float32

// Scan implements the sql.Scanner interface
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	switch raw := value.(type) {
	case []byte:
		return json.Unmarshal(raw, v)
	case string:
		return json.Unmarshal([]byte(raw), v)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

// Value implements the driver.Valuer interface
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// IssueStatus represents the lifecycle status of a monitoring issue
type IssueStatus string

const (
	IssueStatusInvestigating IssueStatus = "investigating"
	IssueStatusMitigated     IssueStatus = "mitigated"
	IssueStatusResolved      IssueStatus = "resolved"
)

// Issue is a persisted record of an AI-analyzed monitoring incident
type Issue struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	IssueID           string      `gorm:"uniqueIndex;size:64;not null" json:"issue_id"` // e.g. ISS-1717243200-payment-api
	Title             string      `gorm:"type:varchar(255)" json:"title"`
	Severity          string      `gorm:"type:varchar(32);index" json:"severity"`
	Status            IssueStatus `gorm:"type:varchar(32);not null;default:'investigating'" json:"status"`
	AffectedServices  StringList  `gorm:"type:text" json:"affected_services"`
	AffectedRegions   StringList  `gorm:"type:text" json:"affected_regions"`
	RootCause         string      `gorm:"type:text" json:"root_cause"`
	CustomerImpact    string      `gorm:"type:text" json:"customer_impact"`
	RecommendedAction string      `gorm:"type:text" json:"recommended_action"`
	Description       string      `gorm:"type:text" json:"description"`
	Workaround        string      `gorm:"type:text" json:"workaround"`
	RelatedEvents     StringList  `gorm:"type:text" json:"related_events"`
	DetectedAt        time.Time   `json:"detected_at"`
	ResolvedAt        *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`

	// Relationships
	Alerts []Alert `gorm:"foreignKey:RelatedIssueID;references:IssueID" json:"alerts,omitempty"`
}

// BeforeCreate hook to set DetectedAt
func (i *Issue) BeforeCreate(tx *gorm.DB) error {
	if i.DetectedAt.IsZero() {
		i.DetectedAt = time.Now()
	}
	return nil
}

func (Issue) TableName() string {
	return "issues"
}

// Alert is a persisted notification generated for an issue
type Alert struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AlertID        string    `gorm:"uniqueIndex;size:64;not null" json:"alert_id"` // e.g. ALR-1717243200-eng
	AlertType      string    `gorm:"type:varchar(32);not null;index" json:"alert_type"`
	Subject        string    `gorm:"type:varchar(255)" json:"subject"`
	Body           string    `gorm:"type:text" json:"body"`
	RelatedIssueID string    `gorm:"size:64;index" json:"related_issue_id"`
	Delivered      bool      `gorm:"default:false" json:"delivered"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

// TicketRecord is a processed support ticket kept for history lookups
// and repeat-question detection
type TicketRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TicketID      string    `gorm:"uniqueIndex;size:64;not null" json:"ticket_id"`
	CustomerID    string    `gorm:"size:64;index" json:"customer_id"`
	Subject       string    `gorm:"type:varchar(255)" json:"subject"`
	Body          string    `gorm:"type:text" json:"body"`
	Channel       string    `gorm:"type:varchar(32)" json:"channel"`
	Urgency       string    `gorm:"type:varchar(8);index" json:"urgency"`
	Category      string    `gorm:"type:varchar(64);index" json:"category"`
	Sentiment     string    `gorm:"type:varchar(32)" json:"sentiment"`
	Queue         string    `gorm:"type:varchar(64)" json:"queue"`
	Team          string    `gorm:"type:varchar(64)" json:"team"`
	ReplyText     string    `gorm:"type:text" json:"reply_text"`
	AutoReplied   bool      `gorm:"default:false" json:"auto_replied"`
	GuardrailPass bool      `gorm:"default:false" json:"guardrail_pass"`
	Embedding     Vector    `gorm:"type:text" json:"-"`
	ProcessedAt   time.Time `gorm:"index" json:"processed_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BeforeCreate hook to set ProcessedAt
func (t *TicketRecord) BeforeCreate(tx *gorm.DB) error {
	if t.ProcessedAt.IsZero() {
		t.ProcessedAt = time.Now()
	}
	return nil
}

func (TicketRecord) TableName() string {
	return "ticket_records"
}

// MonitorSettings is a singleton row holding runtime monitor toggles
type MonitorSettings struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AutoAnalyze    bool      `gorm:"default:true" json:"auto_analyze"`
	SlackEnabled   bool      `gorm:"default:false" json:"slack_enabled"`
	RetentionDays  int       `gorm:"default:30" json:"retention_days"`
	ThresholdRules JSONB     `gorm:"type:text" json:"threshold_rules"` // optional overrides, mirrors the rules file
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (MonitorSettings) TableName() string {
	return "monitor_settings"
}

// NewDefaultMonitorSettings returns settings with production defaults
func NewDefaultMonitorSettings() *MonitorSettings {
	return &MonitorSettings{
		AutoAnalyze:   true,
		SlackEnabled:  false,
		RetentionDays: 30,
	}
}
