package sqlquery

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"posts", "posts"},
		{"created_at", "created_at"},
		{"_id", "_id"},
		{"order", `"order"`},
		{"Select", `"Select"`},
		{"qualify", `"qualify"`},
		{"date", "date"},
		{"title2", "title2"},
		{"naïve", `"naïve"`},
		{"not-votes", `"not-votes"`},
		{"1col", `"1col"`},
		{`a"b`, `"a""b"`},
		{"", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quoteIdentifier(tt.name); got != tt.want {
				t.Errorf("quoteIdentifier(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
	if got := placeholders(0); got != "" {
		t.Errorf("placeholders(0) = %q", got)
	}
}
