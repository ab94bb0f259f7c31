// Package record defines the multilingual record model and the pure
// classification rules that decide whether an item needs translation,
// which target languages are missing, and which language to translate
// from.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"unicode/utf8"
)

// SourcePriority is the ordered list of preferred source languages.
// If none of these are populated, the first populated language field
// in sorted key order is used instead.
var SourcePriority = []string{"de", "en", "fr"}

// Item is one record of a collection. Keys of exactly two characters
// are language fields; all other keys are opaque payload that must be
// preserved unmodified.
type Item map[string]any

// Collection is an ordered sequence of items. Order is significant
// and must survive into the output.
type Collection []Item

// IsLanguageKey reports whether a key names a language field.
func IsLanguageKey(key string) bool {
	return utf8.RuneCountInString(key) == 2
}

// langValue returns the string value of a language key. Non-string
// values are treated as absent.
func langValue(it Item, key string) (string, bool) {
	v, ok := it[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// LanguageKeys returns the item's language keys in sorted order.
func LanguageKeys(it Item) []string {
	var keys []string
	for k := range it {
		if IsLanguageKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Translatable reports whether the item has enough language fields to
// be worth translating. Items with fewer than two language keys are
// skipped entirely.
func Translatable(it Item) bool {
	return len(LanguageKeys(it)) >= 2
}

// MissingTargets returns the language keys that are present but empty,
// in sorted order.
func MissingTargets(it Item) []string {
	var missing []string
	for _, k := range LanguageKeys(it) {
		if s, _ := langValue(it, k); s == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// SourceCount returns the number of populated language fields.
func SourceCount(it Item) int {
	n := 0
	for _, k := range LanguageKeys(it) {
		if s, _ := langValue(it, k); s != "" {
			n++
		}
	}
	return n
}

// SelectSource finds the best populated source language: the priority
// list first, then the first populated language field in sorted key
// order. ok is false if no language field is populated at all.
func SelectSource(it Item) (lang, text string, ok bool) {
	for _, k := range SourcePriority {
		if s, _ := langValue(it, k); s != "" {
			return k, s, true
		}
	}
	for _, k := range LanguageKeys(it) {
		if s, _ := langValue(it, k); s != "" {
			return k, s, true
		}
	}
	return "", "", false
}

// Clone returns a shallow copy of the item so workers can fill in
// translations without mutating the shared collection.
func (it Item) Clone() Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// LoadCollection reads a job source file: a JSON array of items.
func LoadCollection(path string) (Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode job file %s: %w", path, err)
	}
	return c, nil
}

// MarshalLine encodes an item as a single JSON line for the staging
// log, keeping non-ASCII characters unescaped.
func MarshalLine(it Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(it); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCollection encodes a collection as a pretty-printed JSON
// array with non-ASCII characters preserved, matching the job source
// format.
func MarshalCollection(c Collection) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if c == nil {
		c = Collection{}
	}
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
