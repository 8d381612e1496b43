package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/chafukay/byootify/internal/ledger"
	"github.com/chafukay/byootify/internal/models"
)

type LedgerGormRepository struct {
	db *gorm.DB
}

func NewLedgerGormRepository(db *gorm.DB) *LedgerGormRepository {
	return &LedgerGormRepository{db: db}
}

func (r *LedgerGormRepository) InsertEntries(
	ctx context.Context,
	entries []models.LedgerEntry,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entries).Error
	})
	if err != nil && isUniqueViolation(err) {
		return ledger.ErrDuplicateKey
	}
	return err
}

// isUniqueViolation matches the postgres duplicate-key error without
// depending on the driver's error type.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value")
}

func (r *LedgerGormRepository) FindByKeys(
	ctx context.Context,
	keys []string,
) ([]models.LedgerEntry, error) {

	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("idempotency_key IN ?", keys).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerGormRepository) ListByAppointment(
	ctx context.Context,
	appointmentID string,
) ([]models.LedgerEntry, error) {

	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerGormRepository) ListByProvider(
	ctx context.Context,
	providerID string,
	upTo time.Time,
) ([]models.LedgerEntry, error) {

	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND created_at < ?", providerID, upTo).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerGormRepository) ProviderIDs(
	ctx context.Context,
	upTo time.Time,
) ([]string, error) {

	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Distinct("provider_id").
		Where("provider_id <> '' AND created_at < ?", upTo).
		Pluck("provider_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *LedgerGormRepository) ListPayoutsByStatus(
	ctx context.Context,
	status string,
) ([]models.LedgerEntry, error) {

	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND status = ?", "payout", status).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerGormRepository) SetPayoutStatus(
	ctx context.Context,
	entryID string,
	status string,
	transferID string,
) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]any{
			"status":      status,
			"transfer_id": transferID,
		}).Error
}

// Compile-time check
var _ ledger.Repository = (*LedgerGormRepository)(nil)
