package httpapi

import (
	"net/http/httptest"
	"testing"
)

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"//", ""},
		{"pad", "/pad"},
		{"/pad", "/pad"},
		{" /pad/ ", "/pad"},
	}
	for _, tc := range cases {
		if got := normalizeBasePath(tc.in); got != tc.want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLinkBase(t *testing.T) {
	cases := []struct {
		baseURL  string
		basePath string
		want     string
	}{
		{"", "", ""},
		{"", "/pad", "/pad/"},
		{"https://example.com", "", "https://example.com/"},
		{"https://example.com/", "pad", "https://example.com/pad/"},
		{"https://example.com/base", "/x", "https://example.com/base/x/"},
	}
	for _, tc := range cases {
		if got := linkBase(tc.baseURL, tc.basePath); got != tc.want {
			t.Fatalf("linkBase(%q, %q) = %q, want %q", tc.baseURL, tc.basePath, got, tc.want)
		}
	}
}

func TestPublicBaseFromRequest(t *testing.T) {
	srv := NewServer(Config{BasePath: "/pad"}, nil, nil)
	req := httptest.NewRequest("GET", "http://pad.local:8080/pad/api/share", nil)
	if got := srv.publicBase(req); got != "http://pad.local:8080/pad/" {
		t.Fatalf("unexpected base %q", got)
	}
	req.Header.Set("X-Forwarded-Proto", "https, http")
	if got := srv.publicBase(req); got != "https://pad.local:8080/pad/" {
		t.Fatalf("unexpected forwarded base %q", got)
	}
}
