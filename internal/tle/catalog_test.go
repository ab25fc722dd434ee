package tle

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDatasetEpochRangeAndFind(t *testing.T) {
	input := threeLine("ISS (ZARYA)", issLine1, issLine2) + threeLine("OLD", oldLine1, oldLine2)
	res, err := ParseString(input, testLogger)
	if err != nil {
		t.Fatal(err)
	}

	ds := NewDataset("test", res, time.Now())
	if ds.EpochRange.Min.Year() != 1957 || ds.EpochRange.Max.Year() != 2024 {
		t.Errorf("epoch range = %v .. %v", ds.EpochRange.Min, ds.EpochRange.Max)
	}

	tests := []struct {
		id     string
		want   int
		wantOK bool
	}{
		{"25544", 25544, true},
		{"iss (zarya)", 25544, true},
		{" OLD ", 11111, true},
		{"99999", 0, false},
		{"nobody", 0, false},
	}
	for _, tt := range tests {
		el, ok := ds.Find(tt.id)
		if ok != tt.wantOK || el.CatalogNumber() != tt.want {
			t.Errorf("Find(%q) = %d/%v, want %d/%v", tt.id, el.CatalogNumber(), ok, tt.want, tt.wantOK)
		}
	}
}

func TestCatalogSetGet(t *testing.T) {
	c := NewCatalog()
	if c.Get() != nil {
		t.Fatal("new catalog should be empty")
	}
	if c.AgeSeconds() != -1 {
		t.Errorf("AgeSeconds on empty catalog = %v, want -1", c.AgeSeconds())
	}

	ds := &Dataset{Source: "test", LoadedAt: time.Now().Add(-10 * time.Second)}
	c.Set(ds)
	if c.Get() != ds {
		t.Fatal("Get did not return the stored dataset")
	}
	if age := c.AgeSeconds(); age < 10 || age > 20 {
		t.Errorf("AgeSeconds = %v, want ~10", age)
	}
}

func TestCatalogReplace(t *testing.T) {
	res, err := ParseString(threeLine("ISS (ZARYA)", issLine1, issLine2), testLogger)
	if err != nil {
		t.Fatal(err)
	}

	c := NewCatalog()
	loadedAt := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	ds := c.Replace("file", res, loadedAt)

	if c.Get() != ds {
		t.Fatal("Replace did not install the dataset")
	}
	if ds.Source != "file" || !ds.LoadedAt.Equal(loadedAt) || len(ds.Satellites) != 1 {
		t.Errorf("unexpected dataset %+v", ds)
	}
}

func TestCacheWriteLatestPrune(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tle")
	c := NewCache(dir, 2)

	base := time.Unix(1700000000, 0)
	for i := 0; i < 4; i++ {
		if _, err := c.Write([]byte{byte('a' + i)}, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d files after prune, want 2", len(entries))
	}

	path, ts, err := c.Latest()
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if !ts.Equal(base.Add(3 * time.Hour)) {
		t.Errorf("latest ts = %v", ts)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "d" {
		t.Errorf("latest content = %q, want %q", data, "d")
	}
}

func TestCacheEmpty(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "missing"), 0)
	if _, _, err := c.Latest(); err == nil {
		t.Error("expected error from empty cache")
	}
}
