package repository

import (
	"context"
	"fmt"

	"pharmacy/internal/domain"
)

// DemoBranches филиалы демо-каталога
var DemoBranches = []domain.Branch{
	{ID: "branch-1", Name: "District 1 Pharmacy", NameVi: "Nhà thuốc Quận 1", Address: "123 Nguyen Hue, District 1", AddressVi: "123 Nguyễn Huệ, Quận 1", Phone: "028 3822 1111"},
	{ID: "branch-2", Name: "District 3 Pharmacy", NameVi: "Nhà thuốc Quận 3", Address: "45 Vo Van Tan, District 3", AddressVi: "45 Võ Văn Tần, Quận 3", Phone: "028 3930 2222"},
	{ID: "branch-3", Name: "Binh Thanh Pharmacy", NameVi: "Nhà thuốc Bình Thạnh", Address: "9 Xo Viet Nghe Tinh, Binh Thanh", AddressVi: "9 Xô Viết Nghệ Tĩnh, Bình Thạnh", Phone: "028 3512 3333"},
}

// DemoProducts товары демо-каталога
var DemoProducts = []domain.Product{
	{ID: "1", Name: "Paracetamol 500mg", NameVi: "Paracetamol 500mg", Description: "Pain reliever and fever reducer", DescriptionVi: "Thuốc giảm đau, hạ sốt", Category: "Pain Relief", CategoryVi: "Giảm đau", Image: "/images/paracetamol.jpg", Price: 25000, InStock: true},
	{ID: "2", Name: "Amoxicillin 250mg", NameVi: "Amoxicillin 250mg", Description: "Antibiotic for bacterial infections", DescriptionVi: "Kháng sinh điều trị nhiễm khuẩn", Category: "Antibiotics", CategoryVi: "Kháng sinh", Image: "/images/amoxicillin.jpg", Price: 120000, InStock: true, RequiresPrescription: true},
	{ID: "3", Name: "Vitamin C 1000mg", NameVi: "Vitamin C 1000mg", Description: "Immune system support", DescriptionVi: "Tăng cường sức đề kháng", Category: "Vitamins", CategoryVi: "Vitamin", Image: "/images/vitamin-c.jpg", Price: 85000, InStock: true},
	{ID: "4", Name: "Ibuprofen 400mg", NameVi: "Ibuprofen 400mg", Description: "Anti-inflammatory pain reliever", DescriptionVi: "Thuốc giảm đau kháng viêm", Category: "Pain Relief", CategoryVi: "Giảm đau", Image: "/images/ibuprofen.jpg", Price: 45000, InStock: true},
	{ID: "5", Name: "Omeprazole 20mg", NameVi: "Omeprazole 20mg", Description: "Reduces stomach acid", DescriptionVi: "Giảm tiết axit dạ dày", Category: "Digestive", CategoryVi: "Tiêu hóa", Image: "/images/omeprazole.jpg", Price: 95000, InStock: true, RequiresPrescription: true},
	{ID: "6", Name: "Loratadine 10mg", NameVi: "Loratadine 10mg", Description: "Allergy relief", DescriptionVi: "Thuốc chống dị ứng", Category: "Allergy", CategoryVi: "Dị ứng", Image: "/images/loratadine.jpg", Price: 35000, InStock: true},
	{ID: "7", Name: "Oral Rehydration Salts", NameVi: "Oresol", Description: "Electrolyte replacement", DescriptionVi: "Bù nước và điện giải", Category: "Digestive", CategoryVi: "Tiêu hóa", Image: "/images/oresol.jpg", Price: 15000, InStock: false},
}

var demoAvailability = []struct {
	productID, branchID string
	quantity            int64
}{
	{"1", "branch-1", 120}, {"1", "branch-2", 80}, {"1", "branch-3", 40},
	{"2", "branch-1", 15}, {"2", "branch-3", 6},
	{"3", "branch-1", 60}, {"3", "branch-2", 25},
	{"4", "branch-2", 50},
	{"5", "branch-1", 10},
	{"6", "branch-1", 30}, {"6", "branch-2", 30}, {"6", "branch-3", 30},
}

// SeedCatalog заполняет хранилище демо-каталогом; повторный вызов безопасен
func SeedCatalog(ctx context.Context, w CatalogWriter) error {
	for _, b := range DemoBranches {
		if err := w.UpsertBranch(ctx, b); err != nil {
			return fmt.Errorf("seed branch %s: %w", b.ID, err)
		}
	}
	for _, p := range DemoProducts {
		if err := w.UpsertProduct(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	for _, a := range demoAvailability {
		if err := w.SetAvailability(ctx, a.productID, a.branchID, a.quantity); err != nil {
			return fmt.Errorf("seed availability %s/%s: %w", a.productID, a.branchID, err)
		}
	}
	return nil
}
