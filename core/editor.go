package core

import "sync"

// Editor is the text-editing widget the store and runner talk to.
// The store only references it; it does not own its lifecycle.
type Editor interface {
	Value() string
	SetValue(text string)
}

// TextBuffer is an in-process Editor backed by a string.
type TextBuffer struct {
	mu   sync.RWMutex
	text string
}

// NewTextBuffer returns an empty TextBuffer.
func NewTextBuffer() *TextBuffer {
	return &TextBuffer{}
}

// Value returns the current text.
func (b *TextBuffer) Value() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// SetValue replaces the current text.
func (b *TextBuffer) SetValue(text string) {
	b.mu.Lock()
	b.text = text
	b.mu.Unlock()
}
