package config

import (
	"context"
	"fmt"

	"github.com/NareshPS/FBOpenDCHub/internal/hub"
	"github.com/NareshPS/FBOpenDCHub/internal/liststore"
)

// CreateListStore opens the persisted list database selected by the
// configuration.
//
// Supported modes:
//   - on-disk BadgerDB under Lists.Dir (the default)
//   - in-memory, for tests and throwaway hubs
func CreateListStore(cfg *ListsConfig) (*liststore.Store, error) {
	if cfg.InMemory {
		store, err := liststore.OpenInMemory()
		if err != nil {
			return nil, fmt.Errorf("failed to open in-memory list store: %w", err)
		}
		return store, nil
	}

	store, err := liststore.Open(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open list store at %s: %w", cfg.Dir, err)
	}
	return store, nil
}

// CreateArchiver builds the S3 snapshot archiver, or returns nil when
// archiving is disabled.
func CreateArchiver(ctx context.Context, cfg *ArchiveConfig) (*liststore.Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	archiver, err := liststore.NewArchiver(ctx, liststore.ArchiverConfig{
		Bucket:    cfg.Bucket,
		KeyPrefix: cfg.KeyPrefix,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKeyID,
		SecretKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create list archiver: %w", err)
	}
	return archiver, nil
}

// HubSettings converts the static hub configuration into the runtime
// settings the serving loops read and the admin can mutate.
func (c *Config) HubSettings() *hub.Settings {
	return &hub.Settings{
		HubName:           c.Hub.Name,
		HubDescription:    c.Hub.Description,
		HubHost:           c.Hub.Hostname,
		MaxUsers:          c.Hub.MaxUsers,
		UsersPerFork:      c.Hub.UsersPerFork,
		MinShare:          c.Hub.MinShare,
		RedirOnMinShare:   c.Hub.RedirOnMinShare,
		RedirectHost:      c.Hub.RedirectHost,
		BanOverridesAllow: c.Hub.BanOverridesAllow,
		CheckKey:          c.Hub.CheckKey,
		RegisteredOnly:    c.Hub.RegisteredOnly,
		KickBantime:       c.Hub.KickBantime,
		SearchSpamTime:    c.Hub.SearchSpamTime,
		MaxDescLen:        c.Hub.MaxDescLen,
		MaxEmailLen:       c.Hub.MaxEmailLen,
		MinVersion:        c.Hub.MinVersion,
		AdminPass:         c.Hub.AdminPass,
		LinkPass:          c.Hub.LinkPass,
		DefaultPass:       c.Hub.DefaultPass,
	}
}
