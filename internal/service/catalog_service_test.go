package service

import (
	"context"
	"errors"
	"testing"

	"pharmacy/internal/repository"
)

func setupCatalog(t *testing.T) *CatalogService {
	t.Helper()
	store := repository.NewMemoryStore()
	if err := repository.SeedCatalog(context.Background(), store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewCatalogService(store, 0)
}

func TestCatalog_SearchBlankEqualsAll(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	all, err := cs.GetAllProducts(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	found, err := cs.SearchProducts(ctx, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != len(all) {
		t.Fatalf("expected %d, got %d", len(all), len(found))
	}
	for i := range all {
		if all[i].ID != found[i].ID {
			t.Fatalf("order differs at %d", i)
		}
	}
}

func TestCatalog_Search_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	list, _ := cs.SearchProducts(ctx, "VITAMIN")
	if len(list) != 1 || list[0].ID != "3" {
		t.Fatalf("unexpected result: %+v", list)
	}
	list, _ = cs.SearchProducts(ctx, "giảm đau")
	if len(list) != 2 {
		t.Fatalf("expected 2 pain relievers, got %d", len(list))
	}
}

func TestCatalog_Featured(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	list, err := cs.GetFeaturedProducts(ctx)
	if err != nil {
		t.Fatalf("featured: %v", err)
	}
	if len(list) != DefaultFeaturedCount || list[0].ID != "1" || list[5].ID != "6" {
		t.Fatalf("unexpected featured: %d", len(list))
	}
}

func TestCatalog_GetProductByID(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	p, err := cs.GetProductByID(ctx, "2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.RequiresPrescription || p.Price != 120000 {
		t.Fatalf("unexpected product: %+v", p)
	}
	if _, err := cs.GetProductByID(ctx, "404"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := cs.GetProductByID(ctx, " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCatalog_CheckAvailability(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	qty, err := cs.CheckAvailability(ctx, "2", "branch-3")
	if err != nil || qty != 6 {
		t.Fatalf("availability: %d %v", qty, err)
	}
	qty, err = cs.CheckAvailability(ctx, "no-such-product", "branch-1")
	if err != nil || qty != 0 {
		t.Fatalf("missing product: %d %v", qty, err)
	}
}

func TestCatalog_QuoteDelivery(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	opt, err := cs.QuoteDelivery(ctx, DeliveryChoice{Method: "pickup", BranchID: "branch-2"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if opt.Fee != 0 || opt.BranchName != "District 3 Pharmacy" {
		t.Fatalf("unexpected option: %+v", opt)
	}
	if _, err := cs.QuoteDelivery(ctx, DeliveryChoice{Method: "pickup", BranchID: "branch-9"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid branch, got %v", err)
	}
}
