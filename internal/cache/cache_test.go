package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

func testCacheConfig() domain.CacheConfig {
	return domain.CacheConfig{
		Type:         "memory",
		LocalMaxSize: 100,
		LocalTTL:     time.Minute,
	}
}

func TestLRUCacheSetGet(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "tenant-001", "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "tenant-001", "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", val)
	}
}

func TestLRUCacheMiss(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	val, err := c.Get(context.Background(), "tenant-001", "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil for cache miss, got %s", val)
	}
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "tenant-001", "key1", []byte("value1"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "tenant-001", "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Error("expected expired entry to be gone")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(2)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "tenant-001", "key1", []byte("v1"), time.Minute)
	c.Set(ctx, "tenant-001", "key2", []byte("v2"), time.Minute)

	// Touch key1 so key2 is the eviction candidate.
	c.Get(ctx, "tenant-001", "key1")
	c.Set(ctx, "tenant-001", "key3", []byte("v3"), time.Minute)

	if val, _ := c.Get(ctx, "tenant-001", "key2"); val != nil {
		t.Error("expected key2 evicted")
	}
	if val, _ := c.Get(ctx, "tenant-001", "key1"); string(val) != "v1" {
		t.Errorf("expected key1 retained, got %s", val)
	}
}

func TestLRUCacheTenantIsolation(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "tenant-001", "key1", []byte("v1"), time.Minute)

	val, err := c.Get(ctx, "tenant-002", "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Error("expected no cross-tenant reads")
	}
}

func TestLRUCacheRequiresTenantID(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Get(ctx, "", "key1"); err == nil {
		t.Error("expected error for empty tenantID")
	}
	if err := c.Set(ctx, "", "key1", []byte("v"), time.Minute); err == nil {
		t.Error("expected error for empty tenantID")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "tenant-001", "key1", []byte("v1"), time.Minute)
	if err := c.Delete(ctx, "tenant-001", "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if val, _ := c.Get(ctx, "tenant-001", "key1"); val != nil {
		t.Error("expected deleted entry to be gone")
	}
}

func TestLRUCacheFuelPrice(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	_, found, err := c.GetFuelPrice(ctx, "tenant-001")
	if err != nil {
		t.Fatalf("GetFuelPrice failed: %v", err)
	}
	if found {
		t.Error("expected no fuel price before set")
	}

	if err := c.SetFuelPrice(ctx, "tenant-001", 102.35, time.Minute); err != nil {
		t.Fatalf("SetFuelPrice failed: %v", err)
	}

	price, found, err := c.GetFuelPrice(ctx, "tenant-001")
	if err != nil {
		t.Fatalf("GetFuelPrice failed: %v", err)
	}
	if !found || price != 102.35 {
		t.Errorf("expected 102.35, got %.2f (found=%v)", price, found)
	}

	// Other tenants see their own price only.
	if _, found, _ := c.GetFuelPrice(ctx, "tenant-002"); found {
		t.Error("expected no cross-tenant fuel price")
	}
}

func TestLRUCacheIncrementCounter(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrementCounter(ctx, "tenant-001", "quotes", time.Minute)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if got != want {
			t.Errorf("expected count %d, got %d", want, got)
		}
	}
}

func TestLRUCacheCounterWindowReset(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.IncrementCounter(ctx, "tenant-001", "quotes", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	got, err := c.IncrementCounter(ctx, "tenant-001", "quotes", time.Minute)
	if err != nil {
		t.Fatalf("IncrementCounter failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected counter reset to 1 after window, got %d", got)
	}
}

func TestNewCacheFactory(t *testing.T) {
	cfg := testCacheConfig()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewCacheUnsupportedType(t *testing.T) {
	cfg := testCacheConfig()
	cfg.Type = "memcached"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}
