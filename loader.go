package apiquery

import (
	"fmt"

	"github.com/hugr-lab/apiquery/catalog"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding file settings,
// e.g. APIQUERY_PREFIX, APIQUERY_LIMIT, APIQUERY_IGNORES.
const EnvPrefix = "APIQUERY"

// FileConfig is the on-disk form of Config.
type FileConfig struct {
	Prefix   string       `mapstructure:"prefix"`
	Limit    int          `mapstructure:"limit"`
	Ignores  []string     `mapstructure:"ignores"`
	Entities []EntityFile `mapstructure:"entities"`
}

// EntityFile declares one entity in a config file.
type EntityFile struct {
	Name       string         `mapstructure:"name"`
	PrimaryKey string         `mapstructure:"primary_key"`
	Fillable   []string       `mapstructure:"fillable"`
	Filterable []string       `mapstructure:"filterable"`
	Sortable   []string       `mapstructure:"sortable"`
	EagerLoad  []string       `mapstructure:"eager_load"`
	Relations  []RelationFile `mapstructure:"relations"`
}

// RelationFile declares one relation of an entity.
type RelationFile struct {
	Name       string `mapstructure:"name"`
	Kind       string `mapstructure:"kind"`
	Entity     string `mapstructure:"entity"`
	ForeignKey string `mapstructure:"foreign_key"`
	LocalKey   string `mapstructure:"local_key"`
}

// LoadConfig reads a YAML config file. Environment variables prefixed with
// APIQUERY_ override top-level settings. An empty path loads defaults and
// environment only.
//
// Example file:
//
//	prefix: _
//	limit: 20
//	ignores: [token]
//	entities:
//	  - name: posts
//	    fillable: [title, status, created_at]
//	    eager_load: [comments]
//	    relations:
//	      - name: comments
//	        kind: has_many
//	        entity: comments
//	        foreign_key: post_id
//	  - name: comments
//	    fillable: [body, created_at]
func LoadConfig(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetDefault("prefix", DefaultPrefix)
	v.SetDefault("limit", DefaultLimit)
	v.SetDefault("ignores", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv("prefix")
	_ = v.BindEnv("limit")
	_ = v.BindEnv("ignores")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &fc, nil
}

// Catalog builds the declared entities into a catalog.
// Returns nil and no error if no entity is declared.
func (fc *FileConfig) Catalog() (catalog.Catalog, error) {
	if len(fc.Entities) == 0 {
		return nil, nil
	}

	cb := NewCatalogBuilder()
	for _, e := range fc.Entities {
		eb := cb.Entity(e.Name).
			PrimaryKey(e.PrimaryKey).
			Fillable(e.Fillable...).
			EagerLoad(e.EagerLoad...)
		if e.Filterable != nil {
			eb.Filterable(e.Filterable...)
		}
		if e.Sortable != nil {
			eb.Sortable(e.Sortable...)
		}
		for _, r := range e.Relations {
			eb.Relation(catalog.Relation{
				Name:       r.Name,
				Kind:       catalog.RelationKind(r.Kind),
				Entity:     r.Entity,
				ForeignKey: r.ForeignKey,
				LocalKey:   r.LocalKey,
			})
		}
	}
	return cb.Build()
}

// Config converts the file into a Config. Logger fields are left unset.
func (fc *FileConfig) Config() (Config, error) {
	cat, err := fc.Catalog()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return Config{
		Prefix:  fc.Prefix,
		Limit:   fc.Limit,
		Ignores: fc.Ignores,
		Catalog: cat,
	}, nil
}
