package apiquery

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hugr-lab/apiquery/catalog"
)

const testConfigYAML = `
prefix: "$"
limit: 15
ignores: [token, callback]
entities:
  - name: posts
    fillable: [title, status, created_at]
    sortable: [created_at]
    eager_load: [comments]
    relations:
      - name: comments
        kind: has_many
        entity: comments
        foreign_key: post_id
  - name: comments
    primary_key: comment_id
    fillable: [body]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apiquery.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	fc, err := LoadConfig(writeConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if fc.Prefix != "$" || fc.Limit != 15 {
		t.Errorf("Prefix/Limit = %q/%d", fc.Prefix, fc.Limit)
	}
	if strings.Join(fc.Ignores, ",") != "token,callback" {
		t.Errorf("Ignores = %v", fc.Ignores)
	}

	cfg, err := fc.Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}

	posts := testEntity(t, cfg.Catalog, "posts")
	gate := catalog.Resolve(posts)
	if !gate.CanFilter("status") || gate.CanSort("status") || !gate.CanSort("created_at") {
		t.Error("Unexpected posts gate")
	}
	if !gate.CanLoad("comments") {
		t.Error("Expected comments to be eager-loadable")
	}

	comments := testEntity(t, cfg.Catalog, "comments")
	if comments.PrimaryKey() != "comment_id" {
		t.Errorf("PrimaryKey = %q", comments.PrimaryKey())
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("APIQUERY_LIMIT", "50")
	t.Setenv("APIQUERY_IGNORES", "a,b")

	fc, err := LoadConfig(writeConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if fc.Limit != 50 {
		t.Errorf("Limit = %d, want 50", fc.Limit)
	}
	if strings.Join(fc.Ignores, ",") != "a,b" {
		t.Errorf("Ignores = %v", fc.Ignores)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	fc, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if fc.Prefix != DefaultPrefix || fc.Limit != DefaultLimit {
		t.Errorf("defaults = %q/%d", fc.Prefix, fc.Limit)
	}

	cfg, err := fc.Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if cfg.Catalog != nil {
		t.Error("Expected nil catalog without entities")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	fc, err := LoadConfig(writeConfig(t, `
entities:
  - name: posts
    eager_load: [comments]
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if _, err := fc.Config(); err == nil {
		t.Error("Expected error for undeclared eager-load relation")
	}
}
