package httpapi

import "time"

// Config defines HTTP API settings.
type Config struct {
	Addr     string
	BaseURL  string
	BasePath string
	// History bounds the number of stream events kept for Last-Event-ID resume.
	History int
}

const shutdownTimeout = 5 * time.Second
