package core

import (
	"encoding/json"
	"strconv"
	"strings"

	"pkt.systems/potatopad/internal/kv"
	"pkt.systems/potatopad/internal/share"
	"pkt.systems/potatopad/schema"
	"pkt.systems/pslog"
)

// resolveInitialCode picks the code pushed into the first editor.
func resolveInitialCode(cfg Config, store kv.Store, log pslog.Logger) string {
	code := schema.DefaultCode
	if cfg.DefaultCode != "" {
		code = cfg.DefaultCode
	}
	fragment := share.FragmentFromURL(cfg.Fragment)
	if fragment != "" {
		decoded, err := share.Decode(fragment)
		if err != nil {
			log.Warn("store initial code decode failed", "err", err)
			return code
		}
		if decoded != "" {
			code = decoded
		}
		log.Debug("store initial code from fragment", "bytes", len(code))
		return code
	}
	if store == nil {
		return code
	}
	// Saved code is detected but never restored.
	if _, ok, err := store.Get(schema.KeyCode); err == nil && ok {
		log.Debug("store saved code present", "restored", false)
	}
	return code
}

type persistedState struct {
	theme    schema.ThemeName
	fontSize int
	snippets []schema.Snippet
}

// loadPersisted reads theme, font size and snippets, falling back to defaults.
func loadPersisted(store kv.Store, log pslog.Logger) persistedState {
	state := persistedState{
		theme:    schema.DefaultTheme,
		fontSize: schema.DefaultFontSize,
		snippets: []schema.Snippet{},
	}
	if store == nil {
		return state
	}
	if value, ok := lookup(store, schema.KeyTheme, log); ok && value != "" {
		state.theme = schema.ThemeName(value)
	}
	if value, ok := lookup(store, schema.KeyFontSize, log); ok && value != "" {
		size, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || size <= 0 {
			log.Warn("store font size invalid", "value", value, "fallback", schema.DefaultFontSize)
		} else {
			state.fontSize = size
		}
	}
	if value, ok := lookup(store, schema.KeySnippets, log); ok && value != "" {
		var snippets []schema.Snippet
		if err := json.Unmarshal([]byte(value), &snippets); err != nil {
			log.Warn("store snippets invalid", "err", err)
		} else if snippets != nil {
			state.snippets = snippets
		}
	}
	return state
}

func lookup(store kv.Store, key string, log pslog.Logger) (string, bool) {
	value, ok, err := store.Get(key)
	if err != nil {
		log.Warn("store load failed", "key", key, "err", err)
		return "", false
	}
	return value, ok
}
