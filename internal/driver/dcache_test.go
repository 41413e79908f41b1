package driver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/paiml/depyler-sub011/internal/driver"
)

func TestCacheKeyDependsOnInputAndFingerprint(t *testing.T) {
	a := driver.CacheKey([]byte("x = 1"), "cfg")
	if a.IsZero() {
		t.Fatal("key is zero")
	}
	if a != driver.CacheKey([]byte("x = 1"), "cfg") {
		t.Error("key is not stable")
	}
	if a == driver.CacheKey([]byte("x = 2"), "cfg") {
		t.Error("input change kept the key")
	}
	if a == driver.CacheKey([]byte("x = 1"), "other") {
		t.Error("fingerprint change kept the key")
	}
	if len(a.String()) != 64 {
		t.Errorf("hex key %q", a.String())
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := driver.NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := driver.CacheKey([]byte("input"), "")

	var miss driver.DiskPayload
	if hit, err := cache.Get(key, &miss); hit || err != nil {
		t.Fatalf("empty cache: hit=%v err=%v", hit, err)
	}

	in := &driver.DiskPayload{
		Path:   "calc.py",
		Module: "calc",
		Code:   "pub fn add() {}\n",
		Needs:  []string{"serde_json"},
		Diagnostics: []driver.CachedDiagnostic{
			{Severity: 2, Code: 1001, Message: "unsupported", Start: 3, End: 9},
		},
	}
	if err := cache.Put(key, in); err != nil {
		t.Fatal(err)
	}
	var out driver.DiskPayload
	hit, err := cache.Get(key, &out)
	if err != nil || !hit {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	if out.Code != in.Code || out.Module != "calc" || len(out.Needs) != 1 || len(out.Diagnostics) != 1 {
		t.Errorf("payload = %+v", out)
	}
	if out.Diagnostics[0].Start != 3 || out.Diagnostics[0].Message != "unsupported" {
		t.Errorf("diagnostic = %+v", out.Diagnostics[0])
	}

	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	if hit, _ := cache.Get(key, &out); hit {
		t.Error("entry survived DropAll")
	}
}

func TestStaleSchemaIsAMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := driver.NewDiskCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	key := driver.CacheKey([]byte("input"), "")
	data, err := msgpack.Marshal(&driver.DiskPayload{Schema: 9999, Code: "old"})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "translations", key.String()+".mp")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	var out driver.DiskPayload
	hit, err := cache.Get(key, &out)
	if err != nil || hit {
		t.Errorf("stale entry: hit=%v err=%v", hit, err)
	}
}

func TestNilCacheIsInert(t *testing.T) {
	var cache *driver.DiskCache
	if err := cache.Put(driver.Digest{}, &driver.DiskPayload{}); err != nil {
		t.Error(err)
	}
	if hit, err := cache.Get(driver.Digest{}, &driver.DiskPayload{}); hit || err != nil {
		t.Errorf("hit=%v err=%v", hit, err)
	}
}
