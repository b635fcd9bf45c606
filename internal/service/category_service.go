package service

import (
	"context"
	"fmt"
	"strings"

	"calendar-planner/internal/gateway"
	"calendar-planner/internal/model"
	"calendar-planner/internal/repository"
	"calendar-planner/internal/wire"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	gw   *gateway.Client
	repo *repository.CategoryRepository
}

func NewCategoryService(gw *gateway.Client, repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{gw: gw, repo: repo}
}

// List fetches categories from the backend and refreshes the mirror with them.
func (s *CategoryService) List(ctx context.Context, sess model.Session) ([]model.Category, error) {
	categories, err := client(s.gw, sess).ListCategories(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceForUser(ctx, sess.UserID, categories); err != nil {
		return nil, fmt.Errorf("mirror categories: %w", err)
	}
	return s.repo.ListByUser(ctx, sess.UserID)
}

func (s *CategoryService) Create(ctx context.Context, sess model.Session, name, color string) (model.Category, error) {
	payload, err := categoryPayload(name, color)
	if err != nil {
		return model.Category{}, err
	}
	category, err := client(s.gw, sess).CreateCategory(ctx, sess.UserID, payload)
	if err != nil {
		return model.Category{}, err
	}
	return s.mirror(ctx, sess, category)
}

func (s *CategoryService) Update(ctx context.Context, sess model.Session, id int64, name, color string) (model.Category, error) {
	payload, err := categoryPayload(name, color)
	if err != nil {
		return model.Category{}, err
	}
	category, err := client(s.gw, sess).UpdateCategory(ctx, id, sess.UserID, payload)
	if err != nil {
		return model.Category{}, err
	}
	return s.mirror(ctx, sess, category)
}

func (s *CategoryService) Delete(ctx context.Context, sess model.Session, id int64) error {
	if err := client(s.gw, sess).DeleteCategory(ctx, id, sess.UserID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, sess.UserID, id)
}

func (s *CategoryService) mirror(ctx context.Context, sess model.Session, category model.Category) (model.Category, error) {
	category.UserID = sess.UserID
	if err := s.repo.Upsert(ctx, category); err != nil {
		return model.Category{}, fmt.Errorf("mirror category: %w", err)
	}
	return category, nil
}

func categoryPayload(name, color string) (wire.CategoryPayload, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return wire.CategoryPayload{}, invalid("category name is required")
	}
	if !validColor(color) {
		return wire.CategoryPayload{}, invalid("color must be a hex code like #FF8800")
	}
	return wire.CategoryPayloadFrom(model.Category{Name: name, ColorCode: strings.ToUpper(color)}), nil
}
