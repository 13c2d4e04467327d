package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom
// rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that
// cannot be expressed in tags.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Server.AdminPort != 0 {
		if cfg.Server.AdminPort == cfg.Server.Port {
			return fmt.Errorf("server: admin_port must differ from the public port")
		}
		if cfg.Hub.AdminPass == "" {
			return fmt.Errorf("hub: admin_pass is required when the admin port is enabled")
		}
	}

	if cfg.Hub.RedirOnMinShare && cfg.Hub.RedirectHost == "" {
		return fmt.Errorf("hub: redir_on_min_share is set but redirect_host is empty")
	}

	if cfg.Hub.RegisteredOnly && cfg.Hub.DefaultPass == "" {
		// Not fatal in itself, but a hub nobody can register on is
		// almost certainly a mistake when no admin port is open either.
		if cfg.Server.AdminPort == 0 {
			return fmt.Errorf("hub: registered_only needs an admin port or default_pass to add users")
		}
	}

	if cfg.Lists.Archive.Enabled {
		if cfg.Lists.Archive.Bucket == "" {
			return fmt.Errorf("lists.archive: bucket is required when archiving is enabled")
		}
		if cfg.Lists.Archive.Region == "" {
			return fmt.Errorf("lists.archive: region is required when archiving is enabled")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
