package cmd

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"anticlaw/internal/meta"
	"anticlaw/internal/model"
)

func TestSplitTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"one", []string{"one"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{" , ,", nil},
	}
	for _, c := range cases {
		if got := splitTags(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("splitTags(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseKinds(t *testing.T) {
	if got := parseKinds(""); got != nil {
		t.Errorf("empty input should mean all kinds, got %v", got)
	}
	got := parseKinds("chat, insight")
	want := []meta.Kind{meta.KindChat, meta.KindInsight}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("got %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("short ids pass through, got %q", got)
	}
}

func TestRenderErr_Sentinels(t *testing.T) {
	err := fmt.Errorf("node x: %w", model.ErrNotFound)
	if msg := renderErr(err); !strings.HasPrefix(msg, "not found:") {
		t.Errorf("not-found rendering: %q", msg)
	}
	err = fmt.Errorf("%w: still locked", model.ErrConflict)
	if msg := renderErr(err); !strings.Contains(msg, "store busy") {
		t.Errorf("conflict rendering: %q", msg)
	}
	err = model.ValidationError("bad input")
	if msg := renderErr(err); !strings.Contains(msg, "bad input") {
		t.Errorf("validation rendering: %q", msg)
	}
}
