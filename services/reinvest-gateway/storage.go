package main

import (
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Mandate is a standing instruction to reinvest claimed repayments from one
// pool into another on the investor's behalf.
type Mandate struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Investor   string    `gorm:"index" json:"investor"`
	SourcePool uint64    `gorm:"index" json:"sourcePool"`
	TargetPool uint64    `json:"targetPool"`
	// PercentBps caps how much of the claimed amount is reinvested,
	// in basis points of the claim. 10000 reinvests everything.
	PercentBps uint64    `json:"percentBps"`
	Active     bool      `gorm:"index" json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IdempotencyRecord replays the stored response when a key is reused.
type IdempotencyRecord struct {
	Key       string `gorm:"primaryKey"`
	Subject   string `gorm:"index"`
	Status    int
	Response  []byte
	CreatedAt time.Time
}

// AuditEntry records every state-changing request served by the gateway.
type AuditEntry struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	Subject   string
	Method    string
	Path      string
	Status    int
	CreatedAt time.Time
}

// Store wraps the gateway's relational persistence.
type Store struct {
	db *gorm.DB
}

// OpenStore opens the SQLite database at path and migrates the schema.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Mandate{}, &IdempotencyRecord{}, &AuditEntry{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// CreateMandate persists a new mandate.
func (s *Store) CreateMandate(m *Mandate) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return s.db.Create(m).Error
}

// GetMandate loads a mandate by identifier.
func (s *Store) GetMandate(id uuid.UUID) (*Mandate, error) {
	m := &Mandate{}
	if err := s.db.First(m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// MandatesByInvestor lists the investor's mandates, active first.
func (s *Store) MandatesByInvestor(investor string) ([]Mandate, error) {
	var mandates []Mandate
	err := s.db.Where("investor = ?", investor).Order("active desc, created_at").Find(&mandates).Error
	return mandates, err
}

// DeactivateMandate flips the mandate inactive. Missing mandates error.
func (s *Store) DeactivateMandate(id uuid.UUID) error {
	result := s.db.Model(&Mandate{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LookupIdempotent returns the stored response for a key, if any.
func (s *Store) LookupIdempotent(key string) (*IdempotencyRecord, bool, error) {
	record := &IdempotencyRecord{}
	err := s.db.First(record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// SaveIdempotent stores the response served for a key.
func (s *Store) SaveIdempotent(record *IdempotencyRecord) error {
	record.CreatedAt = time.Now()
	return s.db.Create(record).Error
}

// Audit appends an audit row. Failures are reported but non-fatal to the
// request path.
func (s *Store) Audit(subject, method, path string, status int) error {
	return s.db.Create(&AuditEntry{
		Subject:   subject,
		Method:    method,
		Path:      path,
		Status:    status,
		CreatedAt: time.Now(),
	}).Error
}
