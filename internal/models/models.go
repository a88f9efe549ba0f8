package models

import (
	"time"

	"gorm.io/gorm"
)

// Model is the base model with common fields for all database entities
type Model struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// AuthorizationLevel represents the level of access for an API key
type AuthorizationLevel int

const (
	// NoAuthLevel represents public access with no authentication
	NoAuthLevel AuthorizationLevel = 0
	// ViewerAuthLevel represents read-only access
	ViewerAuthLevel AuthorizationLevel = 1
	// WriterAuthLevel represents read-write access
	WriterAuthLevel AuthorizationLevel = 2
	// SudoAuthLevel represents administrative access, needed to provision scanners
	SudoAuthLevel AuthorizationLevel = 3
)

// APIKey is a bearer token bound to the account it speaks for
type APIKey struct {
	Model
	Key                string             `json:"key" gorm:"uniqueIndex;Column:key"`
	Name               string             `json:"name" gorm:"Column:name"`
	Account            string             `json:"account" gorm:"index;Column:account"`
	AuthorizationLevel AuthorizationLevel `json:"authorization_level" gorm:"Column:authorization_level"`
	ExpiresAt          *time.Time         `json:"expires_at" gorm:"Column:expires_at"`
	LastUsedAt         *time.Time         `json:"last_used_at" gorm:"Column:last_used_at"`
}

// Scanner is the persisted form of one account's scan log
type Scanner struct {
	Account         string      `gorm:"primaryKey;Column:account"`
	CreatedAt       time.Time   `gorm:"Column:created_at"`
	UpdatedAt       time.Time   `gorm:"Column:updated_at"`
	LatencyMin      float64     `gorm:"Column:latency_min"`
	LatencyMax      float64     `gorm:"Column:latency_max"`
	LatencyMean     float64     `gorm:"Column:latency_mean"`
	LatencyVariance float64     `gorm:"Column:latency_variance"`
	NumTransactions uint32      `gorm:"Column:num_transactions"`
	TimeFirstTx     uint32      `gorm:"Column:time_first_tx"`
	TimeLastTx      uint32      `gorm:"Column:time_last_tx"`
	Generation      uint32      `gorm:"Column:generation"`
	ScanEvents      []ScanEvent `gorm:"foreignKey:Account;references:Account;constraint:OnDelete:CASCADE"`
}

// ScanEvent is one retained tag read. Seq keeps arrival order within an account.
type ScanEvent struct {
	ID       uint   `gorm:"primarykey"`
	Account  string `gorm:"index:idx_scan_events_account_seq,priority:1;Column:account"`
	Seq      int    `gorm:"index:idx_scan_events_account_seq,priority:2;Column:seq"`
	ScanTime uint32 `gorm:"Column:scan_time"`
	RecvTime uint32 `gorm:"Column:recv_time"`
	DeviceID uint32 `gorm:"Column:device_id"`
	TagID    []byte `gorm:"Column:tag_id"`
}
