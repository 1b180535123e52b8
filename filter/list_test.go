package filter

import (
	"reflect"
	"testing"
)

func TestParseSort(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []SortSpec
	}{
		{
			name:  "descending then ascending",
			value: "-created_at,name",
			expected: []SortSpec{
				{Path: "created_at", Direction: Desc},
				{Path: "name", Direction: Asc},
			},
		},
		{
			name:  "nested",
			value: "comments.created_at",
			expected: []SortSpec{
				{Path: "comments.created_at", Direction: Asc},
			},
		},
		{
			name:  "spaces and empty entries",
			value: " name , ,-, - id",
			expected: []SortSpec{
				{Path: "name", Direction: Asc},
				{Path: "id", Direction: Desc},
			},
		},
		{
			name:     "empty",
			value:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSort(tt.value)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestSortSpecNested(t *testing.T) {
	s := SortSpec{Path: "comments.created_at", Direction: Desc}
	if !s.Nested() || s.Relation() != "comments" || s.Column() != "created_at" {
		t.Errorf("unexpected nested sort decomposition: %+v", s)
	}

	flat := SortSpec{Path: "name"}
	if flat.Nested() || flat.Relation() != "" || flat.Column() != "name" {
		t.Errorf("unexpected flat sort decomposition: %+v", flat)
	}
}

func TestParseFields(t *testing.T) {
	fs := ParseFields("id, title,author.name,,comments.body")

	if !reflect.DeepEqual(fs.Columns, []string{"id", "title"}) {
		t.Errorf("unexpected columns: %v", fs.Columns)
	}
	if !reflect.DeepEqual(fs.Additional, []string{"author.name", "comments.body"}) {
		t.Errorf("unexpected additional fields: %v", fs.Additional)
	}
}

func TestParseRelations(t *testing.T) {
	got := ParseRelations("comments, author,comments,,tags")
	expected := []string{"comments", "author", "tags"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}
