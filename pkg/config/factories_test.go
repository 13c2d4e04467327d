package config

import (
	"context"
	"testing"
)

func TestCreateListStore_InMemory(t *testing.T) {
	cfg := &ListsConfig{InMemory: true}

	store, err := CreateListStore(cfg)
	if err != nil {
		t.Fatalf("Failed to create in-memory list store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store == nil {
		t.Fatal("Expected non-nil store")
	}
}

func TestCreateListStore_OnDisk(t *testing.T) {
	cfg := &ListsConfig{Dir: t.TempDir()}

	store, err := CreateListStore(cfg)
	if err != nil {
		t.Fatalf("Failed to create on-disk list store: %v", err)
	}
	defer func() { _ = store.Close() }()
}

func TestCreateArchiver_Disabled(t *testing.T) {
	archiver, err := CreateArchiver(context.Background(), &ArchiveConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Unexpected error for disabled archiver: %v", err)
	}
	if archiver != nil {
		t.Fatal("Expected nil archiver when archiving is disabled")
	}
}

func TestHubSettings(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Hub.MinShare = 1 << 20
	cfg.Hub.RegisteredOnly = true
	cfg.Hub.CheckKey = true

	settings := cfg.HubSettings()

	if settings.HubName != cfg.Hub.Name {
		t.Errorf("Expected hub name %q, got %q", cfg.Hub.Name, settings.HubName)
	}
	if settings.MaxUsers != cfg.Hub.MaxUsers {
		t.Errorf("Expected max users %d, got %d", cfg.Hub.MaxUsers, settings.MaxUsers)
	}
	if settings.MinShare != 1<<20 {
		t.Errorf("Expected min share %d, got %d", 1<<20, settings.MinShare)
	}
	if !settings.RegisteredOnly {
		t.Error("Expected registered_only to carry over")
	}
	if !settings.CheckKey {
		t.Error("Expected check_key to carry over")
	}
}
