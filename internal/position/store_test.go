package position

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestStoreConcurrentInserts(t *testing.T) {
	store := NewStore(zap.NewNop())

	var wg sync.WaitGroup
	numGoroutines := 10
	positionsPerGoroutine := 50

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < positionsPerGoroutine; j++ {
				store.Insert(&Position{
					MintAddress:    fmt.Sprintf("mint_%d_%d", id, j),
					BuyPrice:       1.0,
					SoldPercentage: 0,
					Status:         StatusActive,
					CreatedAt:      time.Now(),
				})
			}
		}(i)
	}
	wg.Wait()

	want := numGoroutines * positionsPerGoroutine
	if store.Len() != want {
		t.Errorf("Expected %d positions after concurrent inserts, got %d", want, store.Len())
	}

	// One sweep visits every open position exactly once.
	visited := make(map[uint64]int)
	store.ForEachOpen(func(p *Position) {
		visited[p.ID]++
	})
	if len(visited) != want {
		t.Errorf("Sweep visited %d positions, want %d", len(visited), want)
	}
	for id, n := range visited {
		if n != 1 {
			t.Errorf("Position %d visited %d times in one sweep", id, n)
		}
	}

	inserts, sweeps := store.Stats()
	t.Logf("Inserts: %d, Sweeps: %d", inserts, sweeps)
	if inserts != uint64(want) {
		t.Errorf("Expected %d recorded inserts, got %d", want, inserts)
	}
	if sweeps == 0 {
		t.Error("Expected at least one recorded sweep")
	}
}

func TestStoreSweepSkipsFullySold(t *testing.T) {
	store := NewStore(zap.NewNop())

	store.Insert(&Position{MintAddress: "open1", SoldPercentage: 0, Status: StatusActive})
	store.Insert(&Position{MintAddress: "partial", SoldPercentage: 50, Status: StatusSoldPercent(50)})
	store.Insert(&Position{MintAddress: "closed", SoldPercentage: 100, Status: StatusFullySold})

	var seen []string
	store.ForEachOpen(func(p *Position) {
		seen = append(seen, p.MintAddress)
	})

	if len(seen) != 2 {
		t.Fatalf("Expected 2 open positions in sweep, got %d (%v)", len(seen), seen)
	}
	for _, mint := range seen {
		if mint == "closed" {
			t.Error("Fully sold position must not be visited")
		}
	}

	// Fully sold positions stay in the store for display.
	if store.Len() != 3 {
		t.Errorf("Expected 3 total positions, got %d", store.Len())
	}
	if store.OpenCount() != 2 {
		t.Errorf("Expected 2 open positions, got %d", store.OpenCount())
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	store := NewStore(zap.NewNop())

	store.Insert(&Position{MintAddress: "mint1", Status: StatusActive})
	store.Insert(&Position{MintAddress: "mint2", Status: StatusActive})

	snapshot := store.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("Expected 2 positions in snapshot, got %d", len(snapshot))
	}

	snapshot[0].MintAddress = "modified"
	snapshot[0].SoldPercentage = 100

	original, ok := store.Get(1)
	if !ok {
		t.Fatal("Position 1 should exist")
	}
	if original.MintAddress != "mint1" {
		t.Error("Snapshot modification affected the store")
	}
	if original.SoldPercentage != 0 {
		t.Error("Snapshot modification affected stored sold percentage")
	}
}

func TestStoreApply(t *testing.T) {
	store := NewStore(zap.NewNop())

	id := store.Insert(&Position{
		MintAddress: "mint1",
		BuyPrice:    1.0,
		Status:      StatusActive,
	})

	ok := store.Apply(id, func(p *Position) {
		p.CurrentPrice = 4.5
		p.SoldPercentage = 50
		p.Status = StatusSoldPercent(50)
	})
	if !ok {
		t.Fatal("Apply on existing position returned false")
	}

	got, _ := store.Get(id)
	if got.CurrentPrice != 4.5 {
		t.Errorf("Expected current price 4.5, got %v", got.CurrentPrice)
	}
	if got.Status != "Sold 50%" {
		t.Errorf("Expected status 'Sold 50%%', got %q", got.Status)
	}

	if store.Apply(9999, func(p *Position) {}) {
		t.Error("Apply on unknown ID should return false")
	}
}

func TestStoreAllowsDuplicateMints(t *testing.T) {
	store := NewStore(zap.NewNop())

	first := store.Insert(&Position{MintAddress: "same_mint", Status: StatusActive})
	second := store.Insert(&Position{MintAddress: "same_mint", Status: StatusActive})

	if first == second {
		t.Error("Duplicate inserts must get distinct IDs")
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 positions for duplicate mint, got %d", store.Len())
	}
}

func TestStatusSoldPercent(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{50, "Sold 50%"},
		{100, "Sold 100%"},
		{33.5, "Sold 33.5%"},
	}

	for _, tt := range tests {
		if got := StatusSoldPercent(tt.percent); got != tt.want {
			t.Errorf("StatusSoldPercent(%v) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestPositionHelpers(t *testing.T) {
	p := &Position{BuyPrice: 2.0, CurrentPrice: 9.0, SoldPercentage: 50}

	if !p.Open() {
		t.Error("Position at 50% sold should be open")
	}
	if ratio := p.PriceRatio(); ratio != 4.5 {
		t.Errorf("Expected ratio 4.5, got %v", ratio)
	}
	if pnl := p.PnLPercent(); pnl != 350 {
		t.Errorf("Expected PnL 350%%, got %v", pnl)
	}

	p.SoldPercentage = 100
	if p.Open() {
		t.Error("Position at 100% sold should be closed")
	}

	zero := &Position{}
	if zero.PriceRatio() != 0 {
		t.Error("Zero buy price should yield zero ratio")
	}
}
