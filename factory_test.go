package apiquery

import (
	"errors"
	"testing"
)

func TestNewFactoryDefaults(t *testing.T) {
	f, err := NewFactory(Config{})
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}

	cfg := f.Config()
	if cfg.Prefix != DefaultPrefix {
		t.Errorf("Prefix = %q, want %q", cfg.Prefix, DefaultPrefix)
	}
	if cfg.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", cfg.Limit, DefaultLimit)
	}
	if cfg.Prefix != DefaultConfig().Prefix || cfg.Limit != DefaultConfig().Limit {
		t.Errorf("defaults %+v do not match DefaultConfig", cfg)
	}
}

func TestNewFactoryValidation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "prefix with ampersand", config: Config{Prefix: "a&"}},
		{name: "prefix with equals", config: Config{Prefix: "="}},
		{name: "prefix with relation separator", config: Config{Prefix: "~"}},
		{name: "negative limit", config: Config{Limit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFactory(tt.config)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestFactoryReservedNames(t *testing.T) {
	f := testFactory(t, Config{Prefix: "api_"})

	for _, name := range []string{"api_sort", "api_fields", "api_limit", "api_with", "api_page"} {
		if !f.reserved[name] {
			t.Errorf("%s not reserved", name)
		}
	}
	if f.reserved["_sort"] {
		t.Error("default-prefixed name reserved under custom prefix")
	}
}
