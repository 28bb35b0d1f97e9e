package engineconfig

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageBackend != "memory" {
		t.Fatalf("got %q, want default %q", cfg.StorageBackend, "memory")
	}
	if cfg.ListPageSize != 50 {
		t.Fatalf("got %d, want default 50", cfg.ListPageSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadHonorsEnvOverride(t *testing.T) {
	t.Setenv("PREDICTIQ_STORAGE_BACKEND", "badger")
	t.Setenv("PREDICTIQ_LIST_PAGE_SIZE", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageBackend != "badger" {
		t.Fatalf("got %q, want %q", cfg.StorageBackend, "badger")
	}
	if cfg.ListPageSize != 25 {
		t.Fatalf("got %d, want 25", cfg.ListPageSize)
	}
}

func TestValidateRejectsUnknownStorageBackend(t *testing.T) {
	cfg := &Config{StorageBackend: "s3", ListPageSize: 50}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown storage backend")
	}
}

func TestValidateRejectsNonPositivePageSize(t *testing.T) {
	cfg := &Config{StorageBackend: "memory", ListPageSize: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a non-positive page size")
	}
}
