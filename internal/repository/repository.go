package repository

import (
	"context"
	"errors"

	"example.com/rfidscan/internal/database"
	"example.com/rfidscan/internal/models"
	"example.com/rfidscan/internal/scanlog"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Repository provides data access methods
type Repository interface {
	// Scanner operations
	SaveScanner(ctx context.Context, snap scanlog.Snapshot) error
	FindScanner(ctx context.Context, account scanlog.Account) (scanlog.Snapshot, error)
	ListScanners(ctx context.Context) ([]scanlog.Snapshot, error)

	// APIKey operations
	CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error)
	UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	DeleteAPIKey(ctx context.Context, id uint) error
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

// SaveScanner replaces the stored state of one account's log in a single
// transaction: the scanner row is upserted and its events rewritten.
func (r *repo) SaveScanner(ctx context.Context, snap scanlog.Snapshot) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	scanner := ToModel(snap)
	events := scanner.ScanEvents
	scanner.ScanEvents = nil

	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account"}},
			UpdateAll: true,
		}).Create(&scanner).Error; err != nil {
			return pkgerrors.Wrapf(err, "failed to upsert scanner %s", snap.Account)
		}

		if err := tx.Where("account = ?", scanner.Account).Delete(&models.ScanEvent{}).Error; err != nil {
			return pkgerrors.Wrapf(err, "failed to clear scan events for %s", snap.Account)
		}

		if len(events) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(events, 100).Error; err != nil {
			return pkgerrors.Wrapf(err, "failed to insert scan events for %s", snap.Account)
		}
		return nil
	})
}

func (r *repo) FindScanner(ctx context.Context, account scanlog.Account) (scanlog.Snapshot, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return scanlog.Snapshot{}, err
	}

	var scanner models.Scanner
	err = gormDB.WithContext(ctx).
		Preload("ScanEvents", orderedEvents).
		Where("account = ?", string(account)).
		First(&scanner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return scanlog.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return scanlog.Snapshot{}, pkgerrors.Wrapf(err, "failed to load scanner %s", account)
	}

	return ToSnapshot(scanner), nil
}

func (r *repo) ListScanners(ctx context.Context) ([]scanlog.Snapshot, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var scanners []models.Scanner
	if err := gormDB.WithContext(ctx).
		Preload("ScanEvents", orderedEvents).
		Order("account").
		Find(&scanners).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list scanners")
	}

	snaps := make([]scanlog.Snapshot, 0, len(scanners))
	for _, s := range scanners {
		snaps = append(snaps, ToSnapshot(s))
	}
	return snaps, nil
}

func orderedEvents(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// APIKey operations implementation

func (r *repo) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Create(apiKey).Error
}

func (r *repo) GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var apiKey models.APIKey
	err = gormDB.WithContext(ctx).Where("key = ?", key).First(&apiKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &apiKey, nil
}

func (r *repo) UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Save(apiKey).Error
}

func (r *repo) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var apiKeys []*models.APIKey
	if err := gormDB.WithContext(ctx).Order("id").Find(&apiKeys).Error; err != nil {
		return nil, err
	}

	return apiKeys, nil
}

func (r *repo) DeleteAPIKey(ctx context.Context, id uint) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	res := gormDB.WithContext(ctx).Delete(&models.APIKey{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
