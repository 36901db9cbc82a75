package service

import (
	"context"

	"mindplanner/internal/model"
	"mindplanner/internal/repository"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, user *model.User) ([]model.Category, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

// Remember records a category name the user just used.
func (s *CategoryService) Remember(ctx context.Context, user *model.User, name string) error {
	_, err := s.repo.GetOrCreate(ctx, user.ID, name)
	return err
}
