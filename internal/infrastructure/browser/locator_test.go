package browser

import (
	"errors"
	"testing"
)

func TestFindFirstPrefersEarlierSelectors(t *testing.T) {
	t.Parallel()

	lookup := func(sel string) (string, error) {
		if sel == "b" || sel == "c" {
			return "element-" + sel, nil
		}
		return "", errors.New("not found")
	}

	el, sel, err := findFirst(lookup, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("findFirst error: %v", err)
	}
	if sel != "b" || el != "element-b" {
		t.Fatalf("expected first matching selector b, got %s (%s)", sel, el)
	}
}

func TestFindFirstExhaustion(t *testing.T) {
	t.Parallel()

	lookup := func(sel string) (string, error) {
		return "", errors.New("layout shifted")
	}

	_, _, err := findFirst(lookup, []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error when every selector misses")
	}
}

func TestExtractStatusID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want string
	}{
		{"https://x.com/someone/status/1234567890", "1234567890"},
		{"https://x.com/someone/status/1234567890?s=20", "1234567890"},
		{"https://x.com/i/status/42/photo/1", "42"},
		{"https://x.com/home", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := extractStatusID(tc.url); got != tc.want {
			t.Fatalf("extractStatusID(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
