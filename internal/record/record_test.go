package record

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIsLanguageKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"en", true},
		{"de", true},
		{"fr", true},
		{"zh", true},
		{"e", false},
		{"eng", false},
		{"", false},
		{"id_", false},
		{"category", false},
	}

	for _, tt := range tests {
		if got := IsLanguageKey(tt.key); got != tt.want {
			t.Errorf("IsLanguageKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestLanguageKeys(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want []string
	}{
		{
			name: "no language keys",
			item: Item{"category": "food", "idx": 3.0},
			want: nil,
		},
		{
			name: "mixed keys sorted",
			item: Item{"fr": "", "en": "Hello", "de": "Hallo", "note": "x"},
			want: []string{"de", "en", "fr"},
		},
		{
			name: "non-string language value still counts as a key",
			item: Item{"en": "Hi", "de": 42.0},
			want: []string{"de", "en"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LanguageKeys(tt.item); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LanguageKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranslatable(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want bool
	}{
		{"zero language keys", Item{"title": "x"}, false},
		{"one language key", Item{"en": "Hi"}, false},
		{"two language keys", Item{"en": "Hi", "de": ""}, true},
		{"two empty language keys", Item{"en": "", "de": ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Translatable(tt.item); got != tt.want {
				t.Errorf("Translatable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingTargets(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want []string
	}{
		{
			name: "all populated",
			item: Item{"en": "Hello", "de": "Hallo"},
			want: nil,
		},
		{
			name: "two missing, sorted",
			item: Item{"en": "Hello", "fr": "", "de": ""},
			want: []string{"de", "fr"},
		},
		{
			name: "non-language keys ignored",
			item: Item{"en": "Hello", "de": "", "category": ""},
			want: []string{"de"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MissingTargets(tt.item); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingTargets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectSource(t *testing.T) {
	tests := []struct {
		name     string
		item     Item
		wantLang string
		wantText string
		wantOK   bool
	}{
		{
			name:     "priority order prefers de",
			item:     Item{"en": "Hello", "de": "Hallo", "fr": "Bonjour"},
			wantLang: "de",
			wantText: "Hallo",
			wantOK:   true,
		},
		{
			name:     "falls through empty priority entries",
			item:     Item{"de": "", "en": "Hello"},
			wantLang: "en",
			wantText: "Hello",
			wantOK:   true,
		},
		{
			name:     "fallback to first populated in key order",
			item:     Item{"it": "Ciao", "es": "Hola"},
			wantLang: "es",
			wantText: "Hola",
			wantOK:   true,
		},
		{
			name:   "no populated source",
			item:   Item{"en": "", "de": ""},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, text, ok := SelectSource(tt.item)
			if ok != tt.wantOK {
				t.Fatalf("SelectSource() ok = %v, want %v", ok, tt.wantOK)
			}
			if lang != tt.wantLang || text != tt.wantText {
				t.Errorf("SelectSource() = (%q, %q), want (%q, %q)",
					lang, text, tt.wantLang, tt.wantText)
			}
		})
	}
}

func TestSourceCount(t *testing.T) {
	item := Item{"en": "Hello", "de": "", "fr": "Bonjour", "note": "x"}
	if got := SourceCount(item); got != 2 {
		t.Errorf("SourceCount() = %d, want 2", got)
	}
}

func TestClone(t *testing.T) {
	original := Item{"en": "Hello", "de": "", "id": 7.0}
	clone := original.Clone()
	clone["de"] = "Hallo"

	if original["de"] != "" {
		t.Error("Clone() did not isolate the original item")
	}
	if clone["id"] != 7.0 || clone["en"] != "Hello" {
		t.Error("Clone() lost fields")
	}
}

func TestLoadCollection(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "job.json")
	content := `[{"en":"Hello","de":""},{"en":"Hi","meta":{"k":1}}]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCollection(path)
	if err != nil {
		t.Fatalf("LoadCollection() error = %v", err)
	}
	if len(c) != 2 {
		t.Fatalf("LoadCollection() returned %d items, want 2", len(c))
	}
	if c[0]["en"] != "Hello" {
		t.Errorf("first item en = %v, want Hello", c[0]["en"])
	}
	if _, ok := c[1]["meta"]; !ok {
		t.Error("extra keys not preserved on load")
	}
}

func TestLoadCollectionErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadCollection(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCollection(bad); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestMarshalLinePreservesUnicode(t *testing.T) {
	line, err := MarshalLine(Item{"bg": "ябълка"})
	if err != nil {
		t.Fatalf("MarshalLine() error = %v", err)
	}
	if string(line) != "{\"bg\":\"ябълка\"}\n" {
		t.Errorf("MarshalLine() = %q, want unescaped unicode with trailing newline", line)
	}
}

func TestMarshalCollectionEmpty(t *testing.T) {
	data, err := MarshalCollection(nil)
	if err != nil {
		t.Fatalf("MarshalCollection() error = %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("MarshalCollection(nil) = %q, want empty array", data)
	}
}
