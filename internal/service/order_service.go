package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharmacy/internal/cart"
	"pharmacy/internal/domain"
	"pharmacy/internal/logger"
	"pharmacy/internal/repository"
)

const (
	// DefaultConfirmDelay через сколько новый заказ становится confirmed
	DefaultConfirmDelay = 2 * time.Second
	maxIDAttempts       = 3
	orderIDLockKey      = "lock:orders:next-id"
)

// OrderNotifier уведомления об изменениях заказа; ошибки не влияют на заказ
type OrderNotifier interface {
	OrderCreated(ctx context.Context, o domain.Order) error
	OrderStatusChanged(ctx context.Context, o domain.Order, prev domain.OrderStatus) error
}

// Locker распределённая блокировка вокруг выделения номера заказа
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type noopNotifier struct{}

func (noopNotifier) OrderCreated(context.Context, domain.Order) error { return nil }
func (noopNotifier) OrderStatusChanged(context.Context, domain.Order, domain.OrderStatus) error {
	return nil
}

// CreateOrderInput данные оформления заказа
type CreateOrderInput struct {
	Customer           domain.CustomerInfo
	Delivery           domain.DeliveryOption
	Items              []domain.CartItem
	PrescriptionImages []string
}

// OrderService оформление заказа, поиск и смена статусов
type OrderService struct {
	orders       repository.OrderRepository
	tx           repository.TxManager
	sched        Scheduler
	notifier     OrderNotifier
	locker       Locker
	log          logger.Logger
	confirmDelay time.Duration
}

type OrderOption func(*OrderService)

func WithScheduler(s Scheduler) OrderOption    { return func(o *OrderService) { o.sched = s } }
func WithNotifier(n OrderNotifier) OrderOption { return func(o *OrderService) { o.notifier = n } }
func WithLocker(l Locker) OrderOption          { return func(o *OrderService) { o.locker = l } }
func WithLogger(l logger.Logger) OrderOption   { return func(o *OrderService) { o.log = l } }
func WithConfirmDelay(d time.Duration) OrderOption {
	return func(o *OrderService) { o.confirmDelay = d }
}

func NewOrderService(orders repository.OrderRepository, tx repository.TxManager, opts ...OrderOption) *OrderService {
	s := &OrderService{
		orders:       orders,
		tx:           tx,
		notifier:     noopNotifier{},
		log:          logger.NewNop(),
		confirmDelay: DefaultConfirmDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sched == nil {
		s.sched = NewTimerScheduler()
	}
	return s
}

// Close отменяет ожидающие автоподтверждения
func (s *OrderService) Close() {
	s.sched.Stop()
}

func validateOrderInput(in CreateOrderInput) error {
	if strings.TrimSpace(in.Customer.Name) == "" {
		return invalid("name", "is required")
	}
	if strings.TrimSpace(in.Customer.Phone) == "" {
		return invalid("phone", "is required")
	}
	if len(in.Items) == 0 {
		return invalid("items", "cart is empty")
	}
	needsPrescription := false
	for _, it := range in.Items {
		if strings.TrimSpace(it.Product.ID) == "" {
			return invalid("items", "product id is required")
		}
		if it.Quantity <= 0 {
			return invalid("items", "quantity must be positive for "+it.Product.ID)
		}
		if it.Product.Price < 0 {
			return invalid("items", "negative price for "+it.Product.ID)
		}
		if it.Product.RequiresPrescription {
			needsPrescription = true
		}
	}
	switch in.Delivery.Method {
	case domain.DeliveryPickup:
		if in.Delivery.BranchID == "" {
			return invalid("branch_id", "pickup requires a branch")
		}
	case domain.DeliveryShipping:
		if strings.TrimSpace(in.Delivery.Address) == "" {
			return invalid("address", "shipping requires an address")
		}
	default:
		return invalid("method", "must be pickup or shipping")
	}
	if needsPrescription && len(nonBlank(in.PrescriptionImages)) == 0 {
		return invalid("prescription_images", "cart contains a prescription-only product")
	}
	return nil
}

func nonBlank(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// CreateOrder проверяет корзину, сохраняет заказ с позициями и рецептами
// и ставит задачу автоподтверждения.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	o := domain.Order{
		Customer: domain.CustomerInfo{
			Name:    strings.TrimSpace(in.Customer.Name),
			Phone:   strings.TrimSpace(in.Customer.Phone),
			Email:   strings.TrimSpace(in.Customer.Email),
			Address: strings.TrimSpace(in.Customer.Address),
		},
		Delivery:      in.Delivery,
		Status:        domain.OrderStatusPending,
		StatusVi:      domain.OrderStatusPending.Label(),
		Items:         make([]domain.OrderItem, 0, len(in.Items)),
		Prescriptions: []domain.PrescriptionAttachment{},
	}
	var subtotal int64
	for _, it := range in.Items {
		line := domain.OrderItem{
			ProductID:     it.Product.ID,
			ProductName:   it.Product.Name,
			ProductNameVi: it.Product.NameVi,
			ProductPrice:  it.Product.Price,
			Quantity:      it.Quantity,
			Subtotal:      it.Subtotal(),
		}
		subtotal += line.Subtotal
		o.Items = append(o.Items, line)
	}
	o.Total = subtotal + in.Delivery.Fee

	if err := s.insertWithNewID(ctx, &o); err != nil {
		return nil, err
	}
	log := s.log.With(zap.String("order_id", o.ID))

	if images := nonBlank(in.PrescriptionImages); len(images) > 0 {
		added, err := s.orders.AddPrescriptions(ctx, o.ID, images)
		if err != nil {
			log.Warn("prescription write failed, order kept", zap.Int("images", len(images)), zap.Error(err))
			o.Degraded = true
		} else {
			o.Prescriptions = added
		}
	}

	log.Info("order created",
		zap.Int64("total", o.Total),
		zap.String("delivery", string(o.Delivery.Method)),
		zap.Int("items", len(o.Items)))

	s.scheduleConfirm(o.ID)
	if err := s.notifier.OrderCreated(ctx, o); err != nil {
		log.Warn("order created notification failed", zap.Error(err))
	}
	return &o, nil
}

// insertWithNewID номер = максимум + 1; при столкновении выделяем заново
func (s *OrderService) insertWithNewID(ctx context.Context, o *domain.Order) error {
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, orderIDLockKey)
		switch {
		case err == nil:
			defer unlock()
		case errors.Is(err, repository.ErrLockNotAcquired):
			return ErrOrderIDConflict
		default:
			s.log.Warn("order id lock unavailable, relying on primary key", zap.Error(err))
		}
	}

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			id, err := s.orders.NextOrderID(ctx)
			if err != nil {
				return &PersistenceError{Op: "allocate order id", Err: err}
			}
			o.ID = id
			for i := range o.Items {
				o.Items[i].ID = ""
			}
			if err := s.orders.CreateOrder(ctx, o); err != nil {
				if errors.Is(err, repository.ErrDuplicateID) {
					return err
				}
				return &PersistenceError{Op: "create order", Err: err}
			}
			return nil
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateID) {
			return err
		}
		s.log.Warn("order id collision, retrying", zap.String("order_id", o.ID), zap.Int("attempt", attempt))
	}
	return fmt.Errorf("%w after %d attempts", ErrOrderIDConflict, maxIDAttempts)
}

// Checkout оформляет заказ из корзины и при успехе убирает из неё заказанные строки
func (s *OrderService) Checkout(ctx context.Context, c *cart.Store, customer domain.CustomerInfo, delivery domain.DeliveryOption, images []string) (*domain.Order, error) {
	items := c.Items()
	o, err := s.CreateOrder(ctx, CreateOrderInput{
		Customer:           customer,
		Delivery:           delivery,
		Items:              items,
		PrescriptionImages: images,
	})
	if err != nil {
		return nil, err
	}
	// убираем только то, что попало в заказ
	c.RemoveLines(items)
	return o, nil
}

func (s *OrderService) scheduleConfirm(id string) {
	s.sched.Schedule(id, s.confirmDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.autoConfirm(ctx, id); err != nil {
			s.log.Error("auto confirm failed", zap.String("order_id", id), zap.Error(err))
		}
	})
}

// autoConfirm pending -> confirmed; заказ, который уже продвинули вручную, не трогаем
func (s *OrderService) autoConfirm(ctx context.Context, id string) error {
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusPending {
			return nil
		}
		if err := s.orders.UpdateStatus(ctx, id, domain.OrderStatusConfirmed); err != nil {
			return err
		}
		updated, err = s.orders.GetOrder(ctx, id)
		return err
	})
	if err != nil || updated == nil {
		return err
	}
	s.log.Info("order auto-confirmed", zap.String("order_id", id))
	if err := s.notifier.OrderStatusChanged(ctx, *updated, domain.OrderStatusPending); err != nil {
		s.log.Warn("status notification failed", zap.String("order_id", id), zap.Error(err))
	}
	return nil
}

// GetOrderByID заказ с позициями и рецептами
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("id", "is required")
	}
	return s.orders.GetOrder(ctx, id)
}

// GetUserOrders заказы по телефону, новые первыми; пустой список, если нет
func (s *OrderService) GetUserOrders(ctx context.Context, phone string) ([]domain.Order, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return []domain.Order{}, nil
	}
	return s.orders.ListOrdersByPhone(ctx, phone)
}

// UpdateOrderStatus переводит заказ вперёд по цепочке статусов
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("id", "is required")
	}
	if !status.Valid() {
		return nil, invalid("status", "unknown status "+string(status))
	}

	var (
		updated *domain.Order
		prev    domain.OrderStatus
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if !o.Status.CanAdvanceTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidState, o.Status, status)
		}
		prev = o.Status
		if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		updated, err = s.orders.GetOrder(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if prev == domain.OrderStatusPending {
		s.sched.Cancel(id)
	}
	s.log.Info("order status updated",
		zap.String("order_id", id),
		zap.String("from", string(prev)),
		zap.String("to", string(status)))
	if err := s.notifier.OrderStatusChanged(ctx, *updated, prev); err != nil {
		s.log.Warn("status notification failed", zap.String("order_id", id), zap.Error(err))
	}
	return updated, nil
}
