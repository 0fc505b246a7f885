package database

import (
	"fmt"

	"gorm.io/gorm"

	"InternHub-backend/internal/metrics"
	"InternHub-backend/internal/model"
)

// SaveTransition persists change for owner inside tx. The row is only
// updated while it still holds change.From, so two concurrent transitions
// of the same record cannot both win; the loser gets model.ErrConflict. The
// history entry is appended in the same transaction.
func SaveTransition(tx *gorm.DB, owner any, change model.StatusChange) error {
	columns := append([]string{"status", "status_code", "updated_at"}, change.Columns...)

	result := tx.Model(owner).
		Select(columns).
		Where("status = ?", change.From).
		Updates(owner)
	if result.Error != nil {
		return fmt.Errorf("update %s %d: %w", change.OwnerType, change.OwnerID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %d is no longer %s", model.ErrConflict, change.OwnerType, change.OwnerID, change.From)
	}

	if err := tx.Create(&change).Error; err != nil {
		return fmt.Errorf("record %s history: %w", change.OwnerType, err)
	}

	metrics.Transitions.WithLabelValues(change.OwnerType, change.To).Inc()
	return nil
}

// History returns the status changes of one record, oldest first.
func History(db *gorm.DB, ownerType string, ownerID uint) ([]model.StatusChange, error) {
	var changes []model.StatusChange
	err := db.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("changed_at ASC, id ASC").
		Find(&changes).Error
	return changes, err
}
