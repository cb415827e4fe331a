package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pharmacy/internal/domain"
)

// MemoryStore объединённое in-memory хранилище каталога и заказов
type MemoryStore struct {
	mu           sync.RWMutex
	productOrder []string
	productsByID map[string]domain.Product
	branchOrder  []string
	branchesByID map[string]domain.Branch
	// availability[productID][branchID] = quantity
	availability map[string]map[string]int64
	ordersByID   map[string]domain.Order
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		productsByID: make(map[string]domain.Product),
		branchesByID: make(map[string]domain.Branch),
		availability: make(map[string]map[string]int64),
		ordersByID:   make(map[string]domain.Order),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var (
	_ CatalogRepository = (*MemoryStore)(nil)
	_ CatalogWriter     = (*MemoryStore)(nil)
)

// CatalogWriter implementation
func (m *MemoryStore) UpsertBranch(ctx context.Context, b domain.Branch) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.branchesByID[b.ID]; !ok {
		m.branchOrder = append(m.branchOrder, b.ID)
	}
	m.branchesByID[b.ID] = b
	return nil
}

func (m *MemoryStore) UpsertProduct(ctx context.Context, p domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		m.productOrder = append(m.productOrder, p.ID)
	}
	p.BranchAvailability = nil
	m.productsByID[p.ID] = p
	return nil
}

func (m *MemoryStore) SetAvailability(ctx context.Context, productID, branchID string, quantity int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[productID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.branchesByID[branchID]; !ok {
		return ErrNotFound
	}
	if quantity < 0 {
		quantity = 0
	}
	byBranch, ok := m.availability[productID]
	if !ok {
		byBranch = make(map[string]int64)
		m.availability[productID] = byBranch
	}
	byBranch[branchID] = quantity
	return nil
}

// CatalogRepository implementation
func (m *MemoryStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return m.filterProducts(ctx, func(domain.Product) bool { return true }), nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := m.withAvailability(p)
	return &cp, nil
}

func (m *MemoryStore) ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return m.filterProducts(ctx, func(p domain.Product) bool { return matchesCategory(p, category) }), nil
}

func (m *MemoryStore) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	q := strings.TrimSpace(query)
	return m.filterProducts(ctx, func(p domain.Product) bool { return matchesSearch(p, q) }), nil
}

func (m *MemoryStore) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Branch, 0, len(m.branchOrder))
	for _, id := range m.branchOrder {
		out = append(out, m.branchesByID[id])
	}
	return out, nil
}

func (m *MemoryStore) GetAvailability(ctx context.Context, productID, branchID string) (int64, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	return m.availability[productID][branchID], nil
}

func (m *MemoryStore) filterProducts(ctx context.Context, keep func(domain.Product) bool) []domain.Product {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, id := range m.productOrder {
		p := m.productsByID[id]
		if !keep(p) {
			continue
		}
		out = append(out, m.withAvailability(p))
	}
	return out
}

// withAvailability join товара с остатками по филиалам, в порядке филиалов
func (m *MemoryStore) withAvailability(p domain.Product) domain.Product {
	p.BranchAvailability = make([]domain.BranchAvailability, 0)
	byBranch := m.availability[p.ID]
	for _, bid := range m.branchOrder {
		qty, ok := byBranch[bid]
		if !ok {
			continue
		}
		b := m.branchesByID[bid]
		p.BranchAvailability = append(p.BranchAvailability, domain.BranchAvailability{
			BranchID:     b.ID,
			BranchName:   b.Name,
			BranchNameVi: b.NameVi,
			Address:      b.Address,
			AddressVi:    b.AddressVi,
			Phone:        b.Phone,
			Quantity:     qty,
		})
	}
	return p
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) NextOrderID(ctx context.Context) (string, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	var last int64
	for id := range mo.store.ordersByID {
		if n, ok := domain.ParseOrderSeq(id); ok && n > last {
			last = n
		}
	}
	return domain.FormatOrderID(last + 1), nil
}

func (mo *MemoryOrders) CreateOrder(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, exists := mo.store.ordersByID[o.ID]; exists {
		return ErrDuplicateID
	}
	now := mo.store.now()
	o.CreatedAt = now
	o.UpdatedAt = now
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
		o.Items[i].OrderID = o.ID
	}
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) AddPrescriptions(ctx context.Context, orderID string, images []string) ([]domain.PrescriptionAttachment, error) {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByID[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	now := mo.store.now()
	added := make([]domain.PrescriptionAttachment, 0, len(images))
	for _, img := range images {
		added = append(added, domain.PrescriptionAttachment{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			ImageURL:   img,
			UploadedAt: now,
		})
	}
	o.Prescriptions = append(o.Prescriptions, added...)
	mo.store.ordersByID[orderID] = o
	return added, nil
}

func (mo *MemoryOrders) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) ListOrdersByPhone(ctx context.Context, phone string) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if o.Customer.Phone == phone {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (mo *MemoryOrders) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.StatusVi = status.Label()
	o.UpdatedAt = mo.store.now()
	mo.store.ordersByID[id] = o
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append(make([]domain.OrderItem, 0, len(o.Items)), o.Items...)
	o.Prescriptions = append(make([]domain.PrescriptionAttachment, 0, len(o.Prescriptions)), o.Prescriptions...)
	o.Degraded = false
	return o
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
