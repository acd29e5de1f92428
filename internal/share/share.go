// Package share encodes playground code into URL fragments and back.
package share

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
)

var encoding = base64.RawURLEncoding

// Encode compresses code into a URL-safe fragment.
func Encode(code string) (string, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if _, err := io.WriteString(writer, code); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("compress code: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("compress code: %w", err)
	}
	return encoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. An empty fragment decodes to an empty string.
func Decode(fragment string) (string, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return "", nil
	}
	raw, err := encoding.DecodeString(strings.TrimRight(fragment, "="))
	if err != nil {
		return "", fmt.Errorf("decode fragment: %w", err)
	}
	reader := lz4.NewReader(bytes.NewReader(raw))
	var out bytes.Buffer
	if _, err := io.Copy(&out, reader); err != nil {
		return "", fmt.Errorf("decompress fragment: %w", err)
	}
	return out.String(), nil
}

// FragmentFromURL returns the text after the first '#'. Input without a '#'
// is treated as a bare fragment.
func FragmentFromURL(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, '#'); idx >= 0 {
		return value[idx+1:]
	}
	return value
}

// Link builds baseURL#fragment for code. Any fragment already on baseURL is replaced.
func Link(baseURL, code string) (string, error) {
	fragment, err := Encode(code)
	if err != nil {
		return "", err
	}
	base := strings.TrimSpace(baseURL)
	if idx := strings.IndexByte(base, '#'); idx >= 0 {
		base = base[:idx]
	}
	return base + "#" + fragment, nil
}
