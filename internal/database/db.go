package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Connect establishes a database connection. A postgres:// DSN selects
// the postgres driver; anything else is treated as a sqlite file path.
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		DB, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		DB, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	log.Println("Running database migrations...")

	err := DB.AutoMigrate(
		&Issue{},
		&Alert{},
		&TicketRecord{},
		&MonitorSettings{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults() error {
	var count int64
	DB.Model(&MonitorSettings{}).Count(&count)
	if count == 0 {
		if err := DB.Create(NewDefaultMonitorSettings()).Error; err != nil {
			return fmt.Errorf("failed to create default monitor settings: %w", err)
		}
		log.Println("Created default monitor settings")
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ========== Issues ==========

// SaveIssue persists an issue with its alerts in one transaction.
// Accepts a db parameter for dependency injection and testing.
func SaveIssue(db *gorm.DB, issue *Issue, alerts []Alert) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(issue).Error; err != nil {
			return fmt.Errorf("failed to save issue %s: %w", issue.IssueID, err)
		}
		for i := range alerts {
			alerts[i].RelatedIssueID = issue.IssueID
			if err := tx.Create(&alerts[i]).Error; err != nil {
				return fmt.Errorf("failed to save alert %s: %w", alerts[i].AlertID, err)
			}
		}
		return nil
	})
}

// ListIssues returns issues newest first, optionally filtered by status
func ListIssues(db *gorm.DB, status IssueStatus, limit int) ([]Issue, error) {
	query := db.Preload("Alerts").Order("detected_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var issues []Issue
	if err := query.Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

// GetIssue fetches a single issue by its external id
func GetIssue(db *gorm.DB, issueID string) (*Issue, error) {
	var issue Issue
	if err := db.Preload("Alerts").Where("issue_id = ?", issueID).First(&issue).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateIssueStatus moves an issue through its lifecycle. Resolving
// stamps ResolvedAt.
func UpdateIssueStatus(db *gorm.DB, issueID string, status IssueStatus) error {
	updates := map[string]interface{}{"status": status}
	if status == IssueStatusResolved {
		now := time.Now()
		updates["resolved_at"] = &now
	}
	result := db.Model(&Issue{}).Where("issue_id = ?", issueID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ========== Alerts ==========

// ListAlerts returns alerts newest first, optionally filtered by type
func ListAlerts(db *gorm.DB, alertType string, limit int) ([]Alert, error) {
	query := db.Order("created_at desc")
	if alertType != "" {
		query = query.Where("alert_type = ?", alertType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var alerts []Alert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// MarkAlertDelivered records a successful notification delivery
func MarkAlertDelivered(db *gorm.DB, alertID string) error {
	return db.Model(&Alert{}).Where("alert_id = ?", alertID).Update("delivered", true).Error
}

// ========== Ticket records ==========

// SaveTicketRecord persists a processed ticket for history lookups
func SaveTicketRecord(db *gorm.DB, record *TicketRecord) error {
	if err := db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to save ticket record %s: %w", record.TicketID, err)
	}
	return nil
}

// RecentTicketRecords returns records processed since the cutoff,
// newest first
func RecentTicketRecords(db *gorm.DB, since time.Time, limit int) ([]TicketRecord, error) {
	query := db.Where("processed_at >= ?", since).Order("processed_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []TicketRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// TicketStats summarizes processed ticket history
type TicketStats struct {
	Total       int64            `json:"total"`
	AutoReplied int64            `json:"auto_replied"`
	ByUrgency   map[string]int64 `json:"by_urgency"`
	ByCategory  map[string]int64 `json:"by_category"`
}

// GetTicketStats aggregates counts over all stored ticket records
func GetTicketStats(db *gorm.DB) (*TicketStats, error) {
	stats := &TicketStats{
		ByUrgency:  make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	if err := db.Model(&TicketRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&TicketRecord{}).Where("auto_replied = ?", true).Count(&stats.AutoReplied).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var urgencies []bucket
	if err := db.Model(&TicketRecord{}).Select("urgency as key, count(*) as count").Group("urgency").Scan(&urgencies).Error; err != nil {
		return nil, err
	}
	for _, b := range urgencies {
		stats.ByUrgency[b.Key] = b.Count
	}

	var categories []bucket
	if err := db.Model(&TicketRecord{}).Select("category as key, count(*) as count").Group("category").Scan(&categories).Error; err != nil {
		return nil, err
	}
	for _, b := range categories {
		stats.ByCategory[b.Key] = b.Count
	}

	return stats, nil
}

// PruneTicketRecords deletes records older than the retention window
func PruneTicketRecords(db *gorm.DB, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := db.Where("processed_at < ?", cutoff).Delete(&TicketRecord{})
	return result.RowsAffected, result.Error
}

// ========== Settings ==========

// GetOrCreateMonitorSettings retrieves or creates the settings singleton.
// Accepts a db parameter for dependency injection and testing.
func GetOrCreateMonitorSettings(db *gorm.DB) (*MonitorSettings, error) {
	var settings MonitorSettings
	result := db.First(&settings)
	if result.Error == gorm.ErrRecordNotFound {
		settings = *NewDefaultMonitorSettings()
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
	} else if result.Error != nil {
		return nil, result.Error
	}
	return &settings, nil
}

// UpdateMonitorSettings updates monitor settings
func UpdateMonitorSettings(db *gorm.DB, settings *MonitorSettings) error {
	return db.Save(settings).Error
}
