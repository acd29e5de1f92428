package httpapi

import (
	"net/http"
	"strings"
)

// normalizeBasePath returns "" or a path with a leading and no trailing slash.
func normalizeBasePath(value string) string {
	path := strings.Trim(strings.TrimSpace(value), "/")
	if path == "" {
		return ""
	}
	return "/" + path
}

// linkBase joins the configured public URL and base path into the prefix
// placed before a share fragment. It may be relative when no base URL is set.
func linkBase(baseURL, basePath string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	full := base + normalizeBasePath(basePath)
	if full == "" {
		return ""
	}
	return full + "/"
}

// mountAt serves handler under prefix and redirects the bare prefix to prefix+"/".
func mountAt(prefix string, handler http.Handler) http.Handler {
	if prefix == "" {
		return handler
	}
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

// publicBase resolves the externally visible base URL for share links,
// falling back to the request's scheme and host.
func (s *Server) publicBase(r *http.Request) string {
	if strings.HasPrefix(s.linkBase, "http://") || strings.HasPrefix(s.linkBase, "https://") {
		return s.linkBase
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	path := s.linkBase
	if path == "" {
		path = "/"
	}
	return scheme + "://" + r.Host + path
}
