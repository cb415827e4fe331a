package cart

import (
	"sync"

	"pharmacy/internal/domain"
)

// Listener получает снимок корзины после каждого изменения
type Listener func(items []domain.CartItem)

// Store корзина одной сессии. Создаётся явно, глобального экземпляра нет.
type Store struct {
	notifyMu  sync.Mutex
	mu        sync.Mutex
	items     []domain.CartItem
	listeners map[uint64]Listener
	nextSubID uint64
}

func NewStore() *Store {
	return &Store{listeners: make(map[uint64]Listener)}
}

// Add увеличивает количество, если товар уже в корзине, иначе добавляет строку.
// quantity <= 0 трактуется как 1.
func (s *Store) Add(p domain.Product, quantity int64) {
	if quantity <= 0 {
		quantity = 1
	}
	s.mutate(func() {
		for i := range s.items {
			if s.items[i].Product.ID == p.ID {
				s.items[i].Quantity += quantity
				return
			}
		}
		s.items = append(s.items, domain.CartItem{Product: p, Quantity: quantity})
	})
}

// Remove удаляет строку товара, если она есть
func (s *Store) Remove(productID string) {
	s.mutate(func() { s.removeLocked(productID) })
}

// UpdateQuantity quantity <= 0 равносильно удалению
func (s *Store) UpdateQuantity(productID string, quantity int64) {
	s.mutate(func() {
		if quantity <= 0 {
			s.removeLocked(productID)
			return
		}
		for i := range s.items {
			if s.items[i].Product.ID == productID {
				s.items[i].Quantity = quantity
				return
			}
		}
	})
}

// Clear очищает корзину
func (s *Store) Clear() {
	s.mutate(func() { s.items = nil })
}

// RemoveLines вычитает заказанные количества; строки, дошедшие до нуля, удаляются.
// Товары, добавленные после снимка, остаются в корзине.
func (s *Store) RemoveLines(ordered []domain.CartItem) {
	if len(ordered) == 0 {
		return
	}
	s.mutate(func() {
		for _, o := range ordered {
			for i := range s.items {
				if s.items[i].Product.ID == o.Product.ID {
					s.items[i].Quantity -= o.Quantity
					break
				}
			}
		}
		out := s.items[:0]
		for _, it := range s.items {
			if it.Quantity > 0 {
				out = append(out, it)
			}
		}
		s.items = out
	})
}

// Items возвращает копию строк корзины
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Total сумма price * quantity по всем строкам
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, it := range s.items {
		total += it.Subtotal()
	}
	return total
}

// ItemCount общее количество единиц товара (для бейджа)
func (s *Store) ItemCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Subscribe регистрирует слушателя; возвращённая функция отписывает его
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// mutate применяет изменение и рассылает слушателям один и тот же снимок.
// notifyMu держится до конца рассылки, поэтому уведомления идут в порядке
// изменений. Слушатель может читать корзину, но не должен её менять.
func (s *Store) mutate(fn func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(cloneItems(snap))
	}
}

func (s *Store) removeLocked(productID string) {
	out := s.items[:0]
	for _, it := range s.items {
		if it.Product.ID != productID {
			out = append(out, it)
		}
	}
	s.items = out
}

func (s *Store) snapshotLocked() []domain.CartItem {
	return cloneItems(s.items)
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.Product.BranchAvailability != nil {
			out[i].Product.BranchAvailability = append([]domain.BranchAvailability(nil), it.Product.BranchAvailability...)
		}
	}
	return out
}
