/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package templates

import (
	"errors"
	"testing"
)

// mapRow adapts a plain map to the Row interface for tests
type mapRow map[string]string

func (r mapRow) Value(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

func TestParsePlaceholders(t *testing.T) {
	tests := []struct {
		name   string
		open   string
		close  string
		source string
		want   []string
	}{
		{
			name:   "braces",
			open:   "{",
			close:  "}",
			source: "Summarize {Title} for {Audience}",
			want:   []string{"Title", "Audience"},
		},
		{
			name:   "hash pair",
			open:   "#",
			close:  "#",
			source: "Hello #Name# from #City#",
			want:   []string{"Name", "City"},
		},
		{
			name:   "duplicates collapse",
			open:   "{",
			close:  "}",
			source: "{A} and {A} and {B}",
			want:   []string{"A", "B"},
		},
		{
			name:   "no placeholders",
			open:   "{",
			close:  "}",
			source: "plain text only",
			want:   nil,
		},
		{
			name:   "unclosed token is literal",
			open:   "{",
			close:  "}",
			source: "broken {Name",
			want:   nil,
		},
		{
			name:   "empty token is literal",
			open:   "{",
			close:  "}",
			source: "a {} b {C}",
			want:   []string{"C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(WithDelimiters(tt.open, tt.close))
			got := e.Parse(tt.source).Placeholders()
			if len(got) != len(tt.want) {
				t.Fatalf("Placeholders() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Placeholders()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	columns := []string{"Name", "City"}
	e := NewEngine()

	t.Run("all placeholders known", func(t *testing.T) {
		_, placeholders, err := e.Validate("Hi {Name} from {City}", columns)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(placeholders) != 2 {
			t.Errorf("placeholders = %v, want 2 entries", placeholders)
		}
	})

	t.Run("names every unknown column", func(t *testing.T) {
		_, _, err := e.Validate("{Name} {Zip} {Country}", columns)
		var invalid *InvalidColumnsError
		if !errors.As(err, &invalid) {
			t.Fatalf("Validate() error = %v, want *InvalidColumnsError", err)
		}
		if len(invalid.Columns) != 2 {
			t.Fatalf("invalid columns = %v, want 2 entries", invalid.Columns)
		}
		if invalid.Columns[0] != "Country" || invalid.Columns[1] != "Zip" {
			t.Errorf("invalid columns = %v, want [Country Zip]", invalid.Columns)
		}
	})

	t.Run("zero placeholders is valid", func(t *testing.T) {
		_, placeholders, err := e.Validate("no tokens here", columns)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(placeholders) != 0 {
			t.Errorf("placeholders = %v, want none", placeholders)
		}
	})
}

func TestRender(t *testing.T) {
	e := NewEngine(WithDelimiters("#", "#"))
	tmpl := e.Parse("Hello #Name# from #City#")

	t.Run("substitutes values", func(t *testing.T) {
		got := tmpl.Render(mapRow{"Name": "Ann", "City": "Lyon"})
		if got != "Hello Ann from Lyon" {
			t.Errorf("Render() = %q, want %q", got, "Hello Ann from Lyon")
		}
	})

	t.Run("empty value renders empty", func(t *testing.T) {
		got := tmpl.Render(mapRow{"Name": "Bo", "City": ""})
		if got != "Hello Bo from " {
			t.Errorf("Render() = %q, want %q", got, "Hello Bo from ")
		}
	})

	t.Run("missing column renders empty", func(t *testing.T) {
		got := tmpl.Render(mapRow{"Name": "Bo"})
		if got != "Hello Bo from " {
			t.Errorf("Render() = %q, want %q", got, "Hello Bo from ")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		row := mapRow{"Name": "Ann", "City": "Lyon"}
		first := tmpl.Render(row)
		second := tmpl.Render(row)
		if first != second {
			t.Errorf("Render() not idempotent: %q vs %q", first, second)
		}
	})

	t.Run("delimiter characters in values need no escaping", func(t *testing.T) {
		got := tmpl.Render(mapRow{"Name": "A#B{C}", "City": "##"})
		if got != "Hello A#B{C} from ##" {
			t.Errorf("Render() = %q, want %q", got, "Hello A#B{C} from ##")
		}
	})
}
