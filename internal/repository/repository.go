package repository

import (
	"context"
	"errors"
	"strings"

	"pharmacy/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID номер заказа уже занят
	ErrDuplicateID = errors.New("duplicate id")
)

// CatalogRepository чтение каталога и филиалов. Каждый метод, возвращающий
// товары, заполняет BranchAvailability (пустой список, если строк нет).
type CatalogRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)
	GetAvailability(ctx context.Context, productID, branchID string) (int64, error)
}

// CatalogWriter заполнение каталога (сиды, админка)
type CatalogWriter interface {
	UpsertBranch(ctx context.Context, b domain.Branch) error
	UpsertProduct(ctx context.Context, p domain.Product) error
	SetAvailability(ctx context.Context, productID, branchID string, quantity int64) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	// NextOrderID читает максимальный номер и прибавляет единицу.
	// Атомарности нет: два параллельных вызова могут вернуть один номер,
	// тогда CreateOrder второго вернёт ErrDuplicateID.
	NextOrderID(ctx context.Context) (string, error)
	// CreateOrder сохраняет строку заказа и его позиции
	CreateOrder(ctx context.Context, o *domain.Order) error
	AddPrescriptions(ctx context.Context, orderID string, images []string) ([]domain.PrescriptionAttachment, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	// ListOrdersByPhone заказы по точному совпадению телефона, новые первыми
	ListOrdersByPhone(ctx context.Context, phone string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// TxManager абстракция транзакции. Для in-memory: глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchesSearch(p domain.Product, q string) bool {
	for _, f := range []string{p.Name, p.NameVi, p.Category, p.CategoryVi, p.Description, p.DescriptionVi} {
		if containsIgnoreCase(f, q) {
			return true
		}
	}
	return false
}

func matchesCategory(p domain.Product, category string) bool {
	return containsIgnoreCase(p.Category, category) || containsIgnoreCase(p.CategoryVi, category)
}
