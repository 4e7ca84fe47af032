package entities

import (
	"reflect"
	"sort"
	"testing"
)

func TestExtract_FilePathsAndIdentifiers(t *testing.T) {
	got := Extract("Refactored src/main.py and updated config.yaml for the parser")
	want := []string{"config.yaml", "src/main.py"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtract_CamelCase(t *testing.T) {
	got := Extract("The UserManager delegates to AuthService now")
	want := []string{"AuthService", "UserManager"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtract_UpperIdentifiers(t *testing.T) {
	got := Extract("set MAX_RETRIES and API_KEY before deploy")
	for _, want := range []string{"MAX_RETRIES", "API_KEY"} {
		if !contains(got, want) {
			t.Errorf("expected %q in %v", want, got)
		}
	}
}

func TestExtract_URLTrailingPunctuation(t *testing.T) {
	got := Extract("see https://example.com/docs.")
	want := "https://example.com/docs"
	if !contains(got, want) {
		t.Errorf("expected %q in %v", want, got)
	}
}

func TestExtract_NoiseFiltered(t *testing.T) {
	got := Extract("TODO and FIXME and NOTE markers everywhere")
	for _, noise := range []string{"TODO", "FIXME", "NOTE"} {
		if contains(got, noise) {
			t.Errorf("noise token %q should be filtered, got %v", noise, got)
		}
	}
}

func TestExtract_Empty(t *testing.T) {
	got := Extract("")
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("expected no entities, got %v", got)
	}
}

func TestExtract_SortedAndDeduped(t *testing.T) {
	got := Extract("UserManager calls UserManager via AuthService")
	if !sort.StringsAreSorted(got) {
		t.Errorf("result not sorted: %v", got)
	}
	seen := map[string]int{}
	for _, e := range got {
		seen[e]++
	}
	if seen["UserManager"] != 1 {
		t.Errorf("expected UserManager once, got %v", got)
	}
}

func TestHasCausalLanguage_English(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"we switched because the old parser was slow", true},
		{"this leads to a redesign of the cache", true},
		{"Therefore we dropped the flag", true},
		{"just a plain statement about parsing", false},
		{"", false},
	}
	for _, c := range cases {
		if got := HasCausalLanguage(c.text); got != c.want {
			t.Errorf("HasCausalLanguage(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestHasCausalLanguage_Russian(t *testing.T) {
	if !HasCausalLanguage("мы переписали кеш, потому что старый был медленным") {
		t.Error("expected causal detection for Russian keyword")
	}
}

func TestHasCausalLanguage_CaseInsensitive(t *testing.T) {
	if !HasCausalLanguage("BECAUSE of the outage we added retries") {
		t.Error("expected case-insensitive match")
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
