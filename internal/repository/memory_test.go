package repository

import (
	"context"
	"errors"
	"testing"

	"pharmacy/internal/domain"
)

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	if err := SeedCatalog(context.Background(), store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestMemoryStore_CatalogReads(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	all, err := store.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != len(DemoProducts) {
		t.Fatalf("expected %d products, got %d", len(DemoProducts), len(all))
	}
	for i, p := range all {
		if p.ID != DemoProducts[i].ID {
			t.Fatalf("order broken at %d: %s", i, p.ID)
		}
		if p.BranchAvailability == nil {
			t.Fatalf("availability must be non-nil for %s", p.ID)
		}
	}

	p, err := store.GetProduct(ctx, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(p.BranchAvailability) != 3 || p.BranchAvailability[0].BranchID != "branch-1" {
		t.Fatalf("unexpected availability: %+v", p.BranchAvailability)
	}

	oresol, _ := store.GetProduct(ctx, "7")
	if len(oresol.BranchAvailability) != 0 {
		t.Fatalf("expected empty availability, got %+v", oresol.BranchAvailability)
	}

	if _, err := store.GetProduct(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_SearchAndCategory(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	list, _ := store.SearchProducts(ctx, "paracet")
	if len(list) != 1 || list[0].ID != "1" {
		t.Fatalf("search by name: %+v", list)
	}

	// вьетнамское описание
	list, _ = store.SearchProducts(ctx, "kháng sinh")
	if len(list) != 1 || list[0].ID != "2" {
		t.Fatalf("search by vi description: %+v", list)
	}

	list, _ = store.SearchProducts(ctx, "   ")
	if len(list) != len(DemoProducts) {
		t.Fatalf("blank search should return all, got %d", len(list))
	}

	list, _ = store.ListProductsByCategory(ctx, "pain relief")
	if len(list) != 2 {
		t.Fatalf("category pain relief: %d", len(list))
	}
	list, _ = store.ListProductsByCategory(ctx, "Tiêu hóa")
	if len(list) != 2 {
		t.Fatalf("category vi: %d", len(list))
	}
	list, _ = store.ListProductsByCategory(ctx, "Cosmetics")
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", list)
	}
}

func TestMemoryStore_Availability(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	qty, err := store.GetAvailability(ctx, "1", "branch-2")
	if err != nil || qty != 80 {
		t.Fatalf("availability: %d %v", qty, err)
	}
	qty, _ = store.GetAvailability(ctx, "4", "branch-1")
	if qty != 0 {
		t.Fatalf("missing row must be 0, got %d", qty)
	}
	qty, _ = store.GetAvailability(ctx, "missing", "branch-1")
	if qty != 0 {
		t.Fatalf("missing product must be 0, got %d", qty)
	}

	if err := store.SetAvailability(ctx, "1", "branch-x", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown branch, got %v", err)
	}
}

func TestSeedCatalog_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	if err := SeedCatalog(ctx, store); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	products, _ := store.ListProducts(ctx)
	branches, _ := store.ListBranches(ctx)
	if len(products) != len(DemoProducts) || len(branches) != len(DemoBranches) {
		t.Fatalf("duplicates after reseed: %d products, %d branches", len(products), len(branches))
	}
}

func newOrder(id, phone string) *domain.Order {
	return &domain.Order{
		ID:       id,
		Customer: domain.CustomerInfo{Name: "Lan", Phone: phone},
		Delivery: domain.DeliveryOption{Method: domain.DeliveryPickup, BranchID: "branch-1", BranchName: "District 1 Pharmacy"},
		Items: []domain.OrderItem{
			{ProductID: "1", ProductName: "Paracetamol 500mg", ProductPrice: 25000, Quantity: 2, Subtotal: 50000},
		},
		Total:    50000,
		Status:   domain.OrderStatusPending,
		StatusVi: domain.OrderStatusPending.Label(),
	}
}

func TestMemoryOrders_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)

	id, err := orders.NextOrderID(ctx)
	if err != nil || id != "ORD000001" {
		t.Fatalf("first id: %q %v", id, err)
	}

	o := newOrder(id, "0901")
	if err := orders.CreateOrder(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.CreatedAt.IsZero() || o.Items[0].ID == "" || o.Items[0].OrderID != id {
		t.Fatalf("create must fill timestamps and item ids: %+v", o)
	}

	got, err := orders.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Total != 50000 || len(got.Items) != 1 || got.Prescriptions == nil {
		t.Fatalf("unexpected order: %+v", got)
	}

	// копия не должна менять хранилище
	got.Items[0].Quantity = 99
	again, _ := orders.GetOrder(ctx, id)
	if again.Items[0].Quantity != 2 {
		t.Fatalf("store mutated through returned copy")
	}

	next, _ := orders.NextOrderID(ctx)
	if next != "ORD000002" {
		t.Fatalf("next id: %s", next)
	}

	if _, err := orders.GetOrder(ctx, "ORD999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryOrders_ConcurrentAllocationCollides(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	a, _ := orders.NextOrderID(ctx)
	b, _ := orders.NextOrderID(ctx)
	if a != b {
		t.Fatalf("expected same id from unsynchronized reads, got %s and %s", a, b)
	}
	if err := orders.CreateOrder(ctx, newOrder(a, "1")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := orders.CreateOrder(ctx, newOrder(b, "2")); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected duplicate id, got %v", err)
	}
}

func TestMemoryOrders_ListByPhoneAndStatus(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	for _, phone := range []string{"0901", "0902", "0901"} {
		id, _ := orders.NextOrderID(ctx)
		if err := orders.CreateOrder(ctx, newOrder(id, phone)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := orders.ListOrdersByPhone(ctx, "0901")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "ORD000003" || list[1].ID != "ORD000001" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	empty, _ := orders.ListOrdersByPhone(ctx, "000")
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v", empty)
	}

	if err := orders.UpdateStatus(ctx, "ORD000002", domain.OrderStatusConfirmed); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := orders.GetOrder(ctx, "ORD000002")
	if got.Status != domain.OrderStatusConfirmed || got.StatusVi != "Đã xác nhận" {
		t.Fatalf("status not updated: %+v", got)
	}
	if err := orders.UpdateStatus(ctx, "ORD000404", domain.OrderStatusConfirmed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryOrders_AddPrescriptions(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())
	o := newOrder("ORD000001", "0901")
	if err := orders.CreateOrder(ctx, o); err != nil {
		t.Fatal(err)
	}

	added, err := orders.AddPrescriptions(ctx, o.ID, []string{"https://img/1.jpg", "https://img/2.jpg"})
	if err != nil || len(added) != 2 {
		t.Fatalf("add: %v %v", added, err)
	}
	got, _ := orders.GetOrder(ctx, o.ID)
	if imgs := got.PrescriptionImages(); len(imgs) != 2 || imgs[0] != "https://img/1.jpg" {
		t.Fatalf("images: %v", imgs)
	}

	if _, err := orders.AddPrescriptions(ctx, "ORD000404", []string{"x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	// выделение номера и вставка под одной блокировкой
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		id, err := orders.NextOrderID(ctx)
		if err != nil {
			return err
		}
		// вложенная транзакция не должна дедлочить
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			return orders.CreateOrder(ctx, newOrder(id, "0901"))
		})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if _, err := orders.GetOrder(ctx, "ORD000001"); err != nil {
		t.Fatalf("order not stored: %v", err)
	}
}

func TestLikePattern(t *testing.T) {
	cases := map[string]string{
		"para":   "%para%",
		"50%":    `%50\%%`,
		"a_b":    `%a\_b%`,
		`c:\tmp`: `%c:\\tmp%`,
	}
	for in, want := range cases {
		if got := likePattern(in); got != want {
			t.Fatalf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
