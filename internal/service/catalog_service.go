package service

import (
	"context"
	"strings"

	"pharmacy/internal/domain"
	"pharmacy/internal/repository"
)

// DefaultFeaturedCount сколько товаров показывать на главной
const DefaultFeaturedCount = 6

// CatalogService чтение каталога, филиалов и остатков
type CatalogService struct {
	repo     repository.CatalogRepository
	featured int
}

func NewCatalogService(repo repository.CatalogRepository, featured int) *CatalogService {
	if featured <= 0 {
		featured = DefaultFeaturedCount
	}
	return &CatalogService{repo: repo, featured: featured}
}

func (s *CatalogService) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *CatalogService) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("id", "is required")
	}
	return s.repo.GetProduct(ctx, id)
}

// GetProductsByCategory совпадение без учёта регистра по любому из двух языков
func (s *CatalogService) GetProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return s.repo.ListProducts(ctx)
	}
	return s.repo.ListProductsByCategory(ctx, category)
}

// SearchProducts пустой запрос возвращает весь каталог
func (s *CatalogService) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.ListProducts(ctx)
	}
	return s.repo.SearchProducts(ctx, query)
}

func (s *CatalogService) GetFeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	all, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > s.featured {
		all = all[:s.featured]
	}
	return all, nil
}

func (s *CatalogService) GetAllBranches(ctx context.Context) ([]domain.Branch, error) {
	return s.repo.ListBranches(ctx)
}

// CheckAvailability остаток товара в филиале, 0 если строки нет
func (s *CatalogService) CheckAvailability(ctx context.Context, productID, branchID string) (int64, error) {
	productID, branchID = strings.TrimSpace(productID), strings.TrimSpace(branchID)
	if productID == "" {
		return 0, invalid("product_id", "is required")
	}
	if branchID == "" {
		return 0, invalid("branch_id", "is required")
	}
	return s.repo.GetAvailability(ctx, productID, branchID)
}

// QuoteDelivery рассчитывает доставку по актуальному списку филиалов
func (s *CatalogService) QuoteDelivery(ctx context.Context, choice DeliveryChoice) (domain.DeliveryOption, error) {
	var branches []domain.Branch
	if choice.Method == domain.DeliveryPickup {
		var err error
		if branches, err = s.repo.ListBranches(ctx); err != nil {
			return domain.DeliveryOption{}, err
		}
	}
	return ResolveDelivery(choice, branches)
}
