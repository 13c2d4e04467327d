package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Hub.CheckKey = true
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for out-of-range port")
	}
}

func TestValidate_HubNameTooLong(t *testing.T) {
	cfg := validConfig()
	cfg.Hub.Name = strings.Repeat("x", 26)

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for overlong hub name")
	}
}

func TestValidate_AdminPortNeedsPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Server.AdminPort = 4112
	cfg.Hub.AdminPass = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for admin port without password")
	}
	if !strings.Contains(err.Error(), "admin_pass") {
		t.Errorf("Expected admin_pass error, got: %v", err)
	}
}

func TestValidate_AdminPortMustDiffer(t *testing.T) {
	cfg := validConfig()
	cfg.Server.AdminPort = cfg.Server.Port
	cfg.Hub.AdminPass = "pw"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for admin port equal to public port")
	}
}

func TestValidate_RedirectNeedsHost(t *testing.T) {
	cfg := validConfig()
	cfg.Hub.RedirOnMinShare = true
	cfg.Hub.RedirectHost = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for redirect without a host")
	}
	if !strings.Contains(err.Error(), "redirect_host") {
		t.Errorf("Expected redirect_host error, got: %v", err)
	}
}

func TestValidate_RegisteredOnlyNeedsAdminAccess(t *testing.T) {
	cfg := validConfig()
	cfg.Hub.RegisteredOnly = true

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for registered_only with no way to register")
	}

	cfg.Hub.DefaultPass = "welcome"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default_pass to satisfy registered_only, got: %v", err)
	}
}

func TestValidate_ArchiveNeedsBucketAndRegion(t *testing.T) {
	cfg := validConfig()
	cfg.Lists.Archive.Enabled = true

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for archiving without a bucket")
	}

	cfg.Lists.Archive.Bucket = "hub-lists"
	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for archiving without a region")
	}

	cfg.Lists.Archive.Region = "eu-west-1"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected archive config to validate, got: %v", err)
	}
}
