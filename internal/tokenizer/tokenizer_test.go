package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple words",
			input: "cat sat",
			want:  []string{"cat", "sat"},
		},
		{
			name:  "lowercasing",
			input: "Cat RAN",
			want:  []string{"cat", "ran"},
		},
		{
			name:  "stemming plurals",
			input: "cats ponies",
			want:  []string{"cat", "poni"},
		},
		{
			name:  "stemming suffixes",
			input: "running jumped",
			want:  []string{"run", "jump"},
		},
		{
			name:  "punctuation split",
			input: "cat, sat. ran!",
			want:  []string{"cat", "sat", "ran"},
		},
		{
			name:  "repeats preserved in order",
			input: "cat cat dog cat",
			want:  []string{"cat", "cat", "dog", "cat"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
		{
			name:  "whitespace only",
			input: "   \t\n  ",
			want:  []string{},
		},
		{
			name:  "punctuation only",
			input: "... !!! ---",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// Document ingestion and query scoring share one Tokenize function; this
// guards against the pipelines drifting apart for identical input.
func TestTokenizeIsDeterministic(t *testing.T) {
	input := "The Quick Brown Foxes Jumped Over 42 Lazy Dogs"
	first := Tokenize(input)
	for i := 0; i < 10; i++ {
		if got := Tokenize(input); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %v, want %v", i, got, first)
		}
	}
}
