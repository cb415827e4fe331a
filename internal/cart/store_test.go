package cart

import (
	"reflect"
	"testing"
	"time"

	"pharmacy/internal/domain"
)

func product(id string, price int64) domain.Product {
	return domain.Product{ID: id, Name: id, Price: price, InStock: true}
}

func TestStore_AddMergesLines(t *testing.T) {
	s := NewStore()
	p := product("p1", 25000)
	s.Add(p, 1)
	s.Add(p, 2)
	s.Add(product("p2", 10000), 1)

	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(items))
	}
	if items[0].Quantity != 3 {
		t.Fatalf("expected qty 3, got %d", items[0].Quantity)
	}
	if s.Total() != 3*25000+10000 {
		t.Fatalf("total %d", s.Total())
	}
	if s.ItemCount() != 4 {
		t.Fatalf("item count %d", s.ItemCount())
	}
}

func TestStore_TotalMatchesLines(t *testing.T) {
	s := NewStore()
	a, b, c := product("a", 100), product("b", 250), product("c", 7)
	s.Add(a, 2)
	s.Add(b, 1)
	s.UpdateQuantity("b", 4)
	s.Add(c, 3)
	s.Remove("a")
	s.Add(a, 1)
	s.UpdateQuantity("c", 0)
	s.UpdateQuantity("missing", 5)

	var want int64
	for _, it := range s.Items() {
		if it.Quantity < 1 {
			t.Fatalf("stored quantity %d for %s", it.Quantity, it.Product.ID)
		}
		want += it.Product.Price * it.Quantity
	}
	if s.Total() != want {
		t.Fatalf("total %d, want %d", s.Total(), want)
	}
	if want != 4*250+100 {
		t.Fatalf("unexpected line set total %d", want)
	}
}

func TestStore_UpdateZeroEqualsRemove(t *testing.T) {
	build := func() *Store {
		s := NewStore()
		s.Add(product("a", 100), 2)
		s.Add(product("b", 200), 1)
		return s
	}
	s1, s2 := build(), build()
	s1.UpdateQuantity("a", 0)
	s2.Remove("a")
	if !reflect.DeepEqual(s1.Items(), s2.Items()) {
		t.Fatalf("states differ: %v vs %v", s1.Items(), s2.Items())
	}
	s1.UpdateQuantity("b", -3)
	if len(s1.Items()) != 0 {
		t.Fatalf("negative quantity should remove")
	}
}

func TestStore_ItemsIsCopy(t *testing.T) {
	s := NewStore()
	p := product("a", 100)
	p.BranchAvailability = []domain.BranchAvailability{{BranchID: "b1", Quantity: 5}}
	s.Add(p, 1)

	items := s.Items()
	items[0].Quantity = 99
	items[0].Product.BranchAvailability[0].Quantity = 0
	items = append(items, domain.CartItem{Product: product("x", 1), Quantity: 1})

	got := s.Items()
	if len(got) != 1 || got[0].Quantity != 1 {
		t.Fatalf("internal state mutated: %v", got)
	}
	if got[0].Product.BranchAvailability[0].Quantity != 5 {
		t.Fatalf("availability mutated through snapshot")
	}
}

func TestStore_SubscribeNotifiesOncePerMutation(t *testing.T) {
	s := NewStore()
	var first, second [][]domain.CartItem
	unsub1 := s.Subscribe(func(items []domain.CartItem) { first = append(first, items) })
	s.Subscribe(func(items []domain.CartItem) { second = append(second, items) })

	s.Add(product("a", 100), 1)
	if !reflect.DeepEqual(first[len(first)-1], s.Items()) {
		t.Fatalf("snapshot differs from Items after add")
	}
	s.UpdateQuantity("a", 3)
	s.Remove("nope")
	s.Clear()

	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("expected 4 notifications each, got %d and %d", len(first), len(second))
	}
	if len(first[3]) != 0 {
		t.Fatalf("clear should notify with empty cart")
	}

	unsub1()
	unsub1()
	s.Add(product("b", 1), 1)
	if len(first) != 4 {
		t.Fatalf("unsubscribed listener still notified")
	}
	if len(second) != 5 {
		t.Fatalf("remaining listener missed notification")
	}
}

func TestStore_ListenerCanReadStore(t *testing.T) {
	s := NewStore()
	var seenTotal int64
	s.Subscribe(func(items []domain.CartItem) { seenTotal = s.Total() })
	s.Add(product("a", 40), 2)
	if seenTotal != 80 {
		t.Fatalf("listener saw total %d", seenTotal)
	}
}

func TestStore_RemoveLinesSubtractsSnapshot(t *testing.T) {
	s := NewStore()
	a := product("1", 25000)
	b := product("2", 120000)
	s.Add(a, 2)
	s.Add(b, 1)
	snap := s.Items()

	s.Add(a, 3)
	var notified int
	unsub := s.Subscribe(func([]domain.CartItem) { notified++ })
	defer unsub()

	s.RemoveLines(snap)
	items := s.Items()
	if len(items) != 1 || items[0].Product.ID != "1" || items[0].Quantity != 3 {
		t.Fatalf("unexpected cart after remove: %+v", items)
	}
	if notified != 1 {
		t.Fatalf("expected one notification, got %d", notified)
	}

	s.RemoveLines(nil)
	if notified != 1 {
		t.Fatalf("empty remove must not notify")
	}
}

func TestRegistry_GetAndEvict(t *testing.T) {
	created := 0
	r := NewRegistry(time.Minute, func(string, *Store) { created++ })
	a := r.Get("s1")
	if r.Get("s1") != a {
		t.Fatalf("expected same store for same session")
	}
	if r.Get("s2") == a {
		t.Fatalf("sessions must be isolated")
	}
	if created != 2 || r.Len() != 2 {
		t.Fatalf("created=%d len=%d", created, r.Len())
	}
	if n := r.Evict(time.Now().Add(2 * time.Minute)); n != 2 {
		t.Fatalf("evicted %d", n)
	}
	if r.Len() != 0 {
		t.Fatalf("expected no sessions after evict, got %d", r.Len())
	}
}
