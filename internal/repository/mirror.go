package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// replaceForUser swaps every row of T owned by userID for rows, inside tx.
func replaceForUser[T any](tx *gorm.DB, userID int64, rows []T) error {
	var zero T
	if err := tx.Where("user_id = ?", userID).Delete(&zero).Error; err != nil {
		return fmt.Errorf("clear %T: %w", zero, err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert %T: %w", zero, err)
	}
	return nil
}

// upsert writes row by primary key, inserting or overwriting every column.
func upsert[T any](ctx context.Context, db *gorm.DB, row *T) error {
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Omit(clause.Associations).
		Create(row).Error; err != nil {
		return fmt.Errorf("upsert %T: %w", *row, err)
	}
	return nil
}

// deleteOwned removes the row with id owned by userID.
func deleteOwned[T any](ctx context.Context, db *gorm.DB, userID, id int64) error {
	var zero T
	if err := db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&zero).Error; err != nil {
		return fmt.Errorf("delete %T: %w", zero, err)
	}
	return nil
}
