package domain

import "time"

// Product представляет товар в аптеке
type Product struct {
	ID                   string               `json:"id" db:"id"`
	Name                 string               `json:"name" db:"name"`
	NameVi               string               `json:"name_vi" db:"name_vi"`
	Description          string               `json:"description" db:"description"`
	DescriptionVi        string               `json:"description_vi" db:"description_vi"`
	Category             string               `json:"category" db:"category"`
	CategoryVi           string               `json:"category_vi" db:"category_vi"`
	Image                string               `json:"image" db:"image"`
	Price                int64                `json:"price" db:"price"`
	InStock              bool                 `json:"in_stock" db:"in_stock"`
	RequiresPrescription bool                 `json:"requires_prescription" db:"requires_prescription"`
	BranchAvailability   []BranchAvailability `json:"branch_availability" db:"-"`
}

// Branch аптека (филиал) со своим складом
type Branch struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	NameVi    string `json:"name_vi" db:"name_vi"`
	Address   string `json:"address" db:"address"`
	AddressVi string `json:"address_vi" db:"address_vi"`
	Phone     string `json:"phone" db:"phone"`
}

// BranchAvailability остаток товара в конкретном филиале
type BranchAvailability struct {
	BranchID     string `json:"branch_id" db:"branch_id"`
	BranchName   string `json:"branch_name" db:"branch_name"`
	BranchNameVi string `json:"branch_name_vi" db:"branch_name_vi"`
	Address      string `json:"address" db:"address"`
	AddressVi    string `json:"address_vi" db:"address_vi"`
	Phone        string `json:"phone" db:"phone"`
	Quantity     int64  `json:"quantity" db:"quantity"`
}

// CartItem строка корзины, количество всегда >= 1
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int64   `json:"quantity"`
}

// Subtotal цена строки корзины
func (c CartItem) Subtotal() int64 { return c.Product.Price * c.Quantity }

// DeliveryMethod способ получения заказа
type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryShipping DeliveryMethod = "shipping"
)

// DeliveryOption рассчитанный способ доставки
type DeliveryOption struct {
	Method     DeliveryMethod `json:"method"`
	BranchID   string         `json:"branch_id,omitempty"`
	BranchName string         `json:"branch_name,omitempty"`
	Address    string         `json:"address,omitempty"`
	Fee        int64          `json:"fee"`
}

// Destination человекочитаемое место получения
func (d DeliveryOption) Destination() string {
	if d.Method == DeliveryPickup {
		return d.BranchName
	}
	return d.Address
}

// CustomerInfo данные покупателя, обязательны имя и телефон
type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusPreparing: 2,
	OrderStatusReady:     3,
	OrderStatusCompleted: 4,
}

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:   "Đang xử lý",
	OrderStatusConfirmed: "Đã xác nhận",
	OrderStatusPreparing: "Đang chuẩn bị",
	OrderStatusReady:     "Sẵn sàng lấy",
	OrderStatusCompleted: "Đã hoàn thành",
}

// Valid сообщает, известен ли статус
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok
}

// Label вьетнамская подпись статуса для витрины
func (s OrderStatus) Label() string { return orderStatusLabels[s] }

// CanAdvanceTo разрешены только переходы вперёд по цепочке
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return orderStatusRank[next] > orderStatusRank[s]
}

// OrderItem позиция в заказе (снимок товара на момент заказа)
type OrderItem struct {
	ID            string `json:"id" db:"id"`
	OrderID       string `json:"order_id" db:"order_id"`
	ProductID     string `json:"product_id" db:"product_id"`
	ProductName   string `json:"product_name" db:"product_name"`
	ProductNameVi string `json:"product_name_vi" db:"product_name_vi"`
	ProductPrice  int64  `json:"product_price" db:"product_price"`
	Quantity      int64  `json:"quantity" db:"quantity"`
	Subtotal      int64  `json:"subtotal" db:"subtotal"`
}

// PrescriptionAttachment изображение рецепта, приложенное к заказу
type PrescriptionAttachment struct {
	ID         string    `json:"id" db:"id"`
	OrderID    string    `json:"order_id" db:"order_id"`
	ImageURL   string    `json:"image_url" db:"image_url"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// Order сущность заказа
type Order struct {
	ID            string                   `json:"id"`
	Customer      CustomerInfo             `json:"customer"`
	Delivery      DeliveryOption           `json:"delivery"`
	Items         []OrderItem              `json:"items"`
	Total         int64                    `json:"total"`
	Status        OrderStatus              `json:"status"`
	StatusVi      string                   `json:"status_vi"`
	Prescriptions []PrescriptionAttachment `json:"prescriptions"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
	// Degraded выставляется, если заказ создан, но рецепты не сохранились
	Degraded bool `json:"degraded,omitempty"`
}

// PrescriptionImages ссылки на изображения рецептов
func (o Order) PrescriptionImages() []string {
	out := make([]string, 0, len(o.Prescriptions))
	for _, p := range o.Prescriptions {
		out = append(out, p.ImageURL)
	}
	return out
}
