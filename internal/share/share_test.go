package share

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"",
		`console.log("Wassup?🥔");`,
		"const xs = [1, 2, 3];\nxs.forEach(x => console.log(x));\n",
		strings.Repeat("console.warn('again');\n", 200),
		"\x00\x01 binary-ish ☃",
	}
	for _, code := range cases {
		fragment, err := Encode(code)
		if err != nil {
			t.Fatalf("encode %q: %v", code, err)
		}
		if strings.ContainsAny(fragment, "+/=#") {
			t.Fatalf("fragment is not URL safe: %q", fragment)
		}
		got, err := Decode(fragment)
		if err != nil {
			t.Fatalf("decode %q: %v", fragment, err)
		}
		if got != code {
			t.Fatalf("round trip mismatch: got %q, want %q", got, code)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode("  ")
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode("!!not-base64!!"); err == nil {
		t.Fatalf("expected base64 error")
	}
	if _, err := Decode("aGVsbG8gd29ybGQ"); err == nil {
		t.Fatalf("expected decompression error")
	}
}

func TestFragmentFromURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"#abc", "abc"},
		{"https://example.com/#abc", "abc"},
		{"https://example.com/play#abc#def", "abc#def"},
	}
	for _, tc := range cases {
		if got := FragmentFromURL(tc.in); got != tc.want {
			t.Fatalf("FragmentFromURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLinkRoundTrip(t *testing.T) {
	code := `console.log("a", 1)`
	link, err := Link("https://example.com/play#old", code)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if !strings.HasPrefix(link, "https://example.com/play#") {
		t.Fatalf("unexpected link %q", link)
	}
	got, err := Decode(FragmentFromURL(link))
	if err != nil {
		t.Fatalf("decode link: %v", err)
	}
	if got != code {
		t.Fatalf("expected %q, got %q", code, got)
	}
}
