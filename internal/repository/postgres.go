package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"pharmacy/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const pgUniqueViolation = "23505"

// PGStore репозиторий каталога и заказов поверх Postgres
type PGStore struct {
	DB *sqlx.DB
}

func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{DB: db}
}

var (
	_ CatalogRepository = (*PGStore)(nil)
	_ CatalogWriter     = (*PGStore)(nil)
	_ OrderRepository   = (*PGStore)(nil)
	_ TxManager         = (*PGStore)(nil)
)

// Migrate создаёт таблицы, если их нет
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type pgTxKey struct{}

func txFrom(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(pgTxKey{}).(*sqlx.Tx)
	return tx, ok
}

func (s *PGStore) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return s.DB
}

// WithTransaction выполняет fn в одной транзакции; вложенные вызовы переиспользуют её
func (s *PGStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// --- catalog ---

const productColumns = `id, name, name_vi, description, description_vi, category, category_vi, image, price, in_stock, requires_prescription`

func (s *PGStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.selectProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at ASC, id ASC`)
}

func (s *PGStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, s.ext(ctx), &p, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	products := []domain.Product{p}
	if err := s.attachAvailability(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (s *PGStore) ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return s.selectProducts(ctx, `
        SELECT `+productColumns+` FROM products
        WHERE category ILIKE $1 OR category_vi ILIKE $1
        ORDER BY created_at ASC, id ASC`, likePattern(category))
}

func (s *PGStore) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return s.ListProducts(ctx)
	}
	return s.selectProducts(ctx, `
        SELECT `+productColumns+` FROM products
        WHERE name ILIKE $1 OR name_vi ILIKE $1
           OR category ILIKE $1 OR category_vi ILIKE $1
           OR description ILIKE $1 OR description_vi ILIKE $1
        ORDER BY created_at ASC, id ASC`, likePattern(q))
}

func (s *PGStore) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	branches := []domain.Branch{}
	err := sqlx.SelectContext(ctx, s.ext(ctx), &branches, `
        SELECT id, name, name_vi, address, address_vi, phone
        FROM branches ORDER BY created_at ASC, id ASC`)
	return branches, err
}

func (s *PGStore) GetAvailability(ctx context.Context, productID, branchID string) (int64, error) {
	var qty int64
	err := sqlx.GetContext(ctx, s.ext(ctx), &qty, `
        SELECT quantity FROM product_branch_availability
        WHERE product_id = $1 AND branch_id = $2`, productID, branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

func (s *PGStore) selectProducts(ctx context.Context, query string, args ...interface{}) ([]domain.Product, error) {
	products := []domain.Product{}
	if err := sqlx.SelectContext(ctx, s.ext(ctx), &products, query, args...); err != nil {
		return nil, err
	}
	if err := s.attachAvailability(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

type availabilityRow struct {
	ProductID string `db:"product_id"`
	domain.BranchAvailability
}

// attachAvailability одним запросом подтягивает остатки для всех товаров
func (s *PGStore) attachAvailability(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	query, args, err := sqlx.In(`
        SELECT a.product_id, a.quantity,
               b.id AS branch_id, b.name AS branch_name, b.name_vi AS branch_name_vi,
               b.address, b.address_vi, b.phone
        FROM product_branch_availability a
        JOIN branches b ON b.id = a.branch_id
        WHERE a.product_id IN (?)
        ORDER BY b.created_at ASC, b.id ASC`, ids)
	if err != nil {
		return err
	}
	// Rebind for Postgres ($1, $2...)
	query = s.DB.Rebind(query)

	var rows []availabilityRow
	if err := sqlx.SelectContext(ctx, s.ext(ctx), &rows, query, args...); err != nil {
		return fmt.Errorf("load availability: %w", err)
	}
	byProduct := make(map[string][]domain.BranchAvailability, len(products))
	for _, r := range rows {
		byProduct[r.ProductID] = append(byProduct[r.ProductID], r.BranchAvailability)
	}
	for i := range products {
		products[i].BranchAvailability = byProduct[products[i].ID]
		if products[i].BranchAvailability == nil {
			products[i].BranchAvailability = []domain.BranchAvailability{}
		}
	}
	return nil
}

func (s *PGStore) UpsertBranch(ctx context.Context, b domain.Branch) error {
	_, err := sqlx.NamedExecContext(ctx, s.ext(ctx), `
        INSERT INTO branches (id, name, name_vi, address, address_vi, phone)
        VALUES (:id, :name, :name_vi, :address, :address_vi, :phone)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            name_vi = EXCLUDED.name_vi,
            address = EXCLUDED.address,
            address_vi = EXCLUDED.address_vi,
            phone = EXCLUDED.phone,
            updated_at = now()
    `, b)
	return err
}

func (s *PGStore) UpsertProduct(ctx context.Context, p domain.Product) error {
	_, err := sqlx.NamedExecContext(ctx, s.ext(ctx), `
        INSERT INTO products (id, name, name_vi, description, description_vi, category, category_vi, image, price, in_stock, requires_prescription)
        VALUES (:id, :name, :name_vi, :description, :description_vi, :category, :category_vi, :image, :price, :in_stock, :requires_prescription)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            name_vi = EXCLUDED.name_vi,
            description = EXCLUDED.description,
            description_vi = EXCLUDED.description_vi,
            category = EXCLUDED.category,
            category_vi = EXCLUDED.category_vi,
            image = EXCLUDED.image,
            price = EXCLUDED.price,
            in_stock = EXCLUDED.in_stock,
            requires_prescription = EXCLUDED.requires_prescription,
            updated_at = now()
    `, p)
	return err
}

func (s *PGStore) SetAvailability(ctx context.Context, productID, branchID string, quantity int64) error {
	if quantity < 0 {
		quantity = 0
	}
	_, err := s.ext(ctx).ExecContext(ctx, `
        INSERT INTO product_branch_availability (id, product_id, branch_id, quantity)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (product_id, branch_id) DO UPDATE SET
            quantity = EXCLUDED.quantity,
            updated_at = now()
    `, uuid.NewString(), productID, branchID, quantity)
	return err
}

// --- orders ---

type orderRow struct {
	ID              string    `db:"id"`
	CustomerName    string    `db:"customer_name"`
	CustomerPhone   string    `db:"customer_phone"`
	CustomerEmail   string    `db:"customer_email"`
	CustomerAddress string    `db:"customer_address"`
	DeliveryMethod  string    `db:"delivery_method"`
	BranchID        string    `db:"branch_id"`
	BranchName      string    `db:"branch_name"`
	DeliveryAddress string    `db:"delivery_address"`
	DeliveryFee     int64     `db:"delivery_fee"`
	Total           int64     `db:"total"`
	Status          string    `db:"status"`
	StatusVi        string    `db:"status_vi"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

const orderColumns = `id, customer_name, customer_phone, customer_email, customer_address,
        delivery_method, branch_id, branch_name, delivery_address, delivery_fee,
        total, status, status_vi, created_at, updated_at`

func newOrderRow(o *domain.Order) orderRow {
	return orderRow{
		ID:              o.ID,
		CustomerName:    o.Customer.Name,
		CustomerPhone:   o.Customer.Phone,
		CustomerEmail:   o.Customer.Email,
		CustomerAddress: o.Customer.Address,
		DeliveryMethod:  string(o.Delivery.Method),
		BranchID:        o.Delivery.BranchID,
		BranchName:      o.Delivery.BranchName,
		DeliveryAddress: o.Delivery.Address,
		DeliveryFee:     o.Delivery.Fee,
		Total:           o.Total,
		Status:          string(o.Status),
		StatusVi:        o.StatusVi,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (r orderRow) toDomain() domain.Order {
	return domain.Order{
		ID: r.ID,
		Customer: domain.CustomerInfo{
			Name:    r.CustomerName,
			Phone:   r.CustomerPhone,
			Email:   r.CustomerEmail,
			Address: r.CustomerAddress,
		},
		Delivery: domain.DeliveryOption{
			Method:     domain.DeliveryMethod(r.DeliveryMethod),
			BranchID:   r.BranchID,
			BranchName: r.BranchName,
			Address:    r.DeliveryAddress,
			Fee:        r.DeliveryFee,
		},
		Total:         r.Total,
		Status:        domain.OrderStatus(r.Status),
		StatusVi:      r.StatusVi,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Items:         []domain.OrderItem{},
		Prescriptions: []domain.PrescriptionAttachment{},
	}
}

func (s *PGStore) NextOrderID(ctx context.Context) (string, error) {
	var last sql.NullInt64
	err := sqlx.GetContext(ctx, s.ext(ctx), &last, `
        SELECT MAX(CAST(SUBSTRING(id FROM 4) AS BIGINT))
        FROM orders WHERE id ~ '^ORD[0-9]+$'`)
	if err != nil {
		return "", fmt.Errorf("read max order id: %w", err)
	}
	return domain.FormatOrderID(last.Int64 + 1), nil
}

// CreateOrder строка заказа и позиции пишутся в одной транзакции
func (s *PGStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
		o.Items[i].OrderID = o.ID
	}

	return s.WithTransaction(ctx, func(ctx context.Context) error {
		// 1. Insert order
		_, err := sqlx.NamedExecContext(ctx, s.ext(ctx), `
            INSERT INTO orders (`+orderColumns+`)
            VALUES (:id, :customer_name, :customer_phone, :customer_email, :customer_address,
                    :delivery_method, :branch_id, :branch_name, :delivery_address, :delivery_fee,
                    :total, :status, :status_vi, :created_at, :updated_at)
        `, newOrderRow(o))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateID
			}
			return fmt.Errorf("failed to insert order: %w", err)
		}

		// 2. Insert order items
		// position сохраняет порядок строк корзины
		for i, item := range o.Items {
			_, err = s.ext(ctx).ExecContext(ctx, `
                INSERT INTO order_items (id, order_id, product_id, product_name, product_name_vi, product_price, quantity, subtotal, position)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            `, item.ID, item.OrderID, item.ProductID, item.ProductName, item.ProductNameVi, item.ProductPrice, item.Quantity, item.Subtotal, i)
			if err != nil {
				return fmt.Errorf("failed to insert order item %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

func (s *PGStore) AddPrescriptions(ctx context.Context, orderID string, images []string) ([]domain.PrescriptionAttachment, error) {
	added := make([]domain.PrescriptionAttachment, 0, len(images))
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		for i, img := range images {
			p := domain.PrescriptionAttachment{ID: uuid.NewString(), OrderID: orderID, ImageURL: img, UploadedAt: now}
			_, err := s.ext(ctx).ExecContext(ctx, `
                INSERT INTO prescriptions (id, order_id, image_url, uploaded_at, position)
                VALUES ($1, $2, $3, $4, $5)
            `, p.ID, p.OrderID, p.ImageURL, p.UploadedAt, i)
			if err != nil {
				return fmt.Errorf("failed to insert prescription: %w", err)
			}
			added = append(added, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *PGStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if _, ok := txFrom(ctx); ok {
		query += ` FOR UPDATE`
	}
	var row orderRow
	if err := sqlx.GetContext(ctx, s.ext(ctx), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	orders := []domain.Order{row.toDomain()}
	if err := s.attachOrderDetails(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (s *PGStore) ListOrdersByPhone(ctx context.Context, phone string) ([]domain.Order, error) {
	var rows []orderRow
	err := sqlx.SelectContext(ctx, s.ext(ctx), &rows, `
        SELECT `+orderColumns+` FROM orders
        WHERE customer_phone = $1
        ORDER BY created_at DESC, id DESC`, phone)
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toDomain())
	}
	if err := s.attachOrderDetails(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	res, err := s.ext(ctx).ExecContext(ctx, `
        UPDATE orders SET status = $2, status_vi = $3, updated_at = now()
        WHERE id = $1`, id, string(status), status.Label())
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// attachOrderDetails подтягивает позиции и рецепты для набора заказов
func (s *PGStore) attachOrderDetails(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	query, args, err := sqlx.In(`
        SELECT id, order_id, product_id, product_name, product_name_vi, product_price, quantity, subtotal
        FROM order_items WHERE order_id IN (?)
        ORDER BY position ASC, id ASC`, ids)
	if err != nil {
		return err
	}
	var items []domain.OrderItem
	if err := sqlx.SelectContext(ctx, s.ext(ctx), &items, s.DB.Rebind(query), args...); err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	for _, it := range items {
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}

	query, args, err = sqlx.In(`
        SELECT id, order_id, image_url, uploaded_at
        FROM prescriptions WHERE order_id IN (?)
        ORDER BY uploaded_at ASC, position ASC, id ASC`, ids)
	if err != nil {
		return err
	}
	var prescriptions []domain.PrescriptionAttachment
	if err := sqlx.SelectContext(ctx, s.ext(ctx), &prescriptions, s.DB.Rebind(query), args...); err != nil {
		return fmt.Errorf("load prescriptions: %w", err)
	}
	for _, p := range prescriptions {
		i := index[p.OrderID]
		orders[i].Prescriptions = append(orders[i].Prescriptions, p)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// likePattern экранирует спецсимволы LIKE и оборачивает в %...%
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
