package repository

import (
	"context"

	"gorm.io/gorm"

	"calendar-planner/internal/model"
)

// CategoryRepository mirrors task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) ReplaceForUser(ctx context.Context, userID int64, categories []model.Category) error {
	for i := range categories {
		categories[i].UserID = userID
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceForUser(tx, userID, categories)
	})
}

func (r *CategoryRepository) Upsert(ctx context.Context, category model.Category) error {
	return upsert(ctx, r.db, &category)
}

func (r *CategoryRepository) Delete(ctx context.Context, userID, id int64) error {
	return deleteOwned[model.Category](ctx, r.db, userID, id)
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID int64) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}
