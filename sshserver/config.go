package sshserver

// Config defines SSH console settings.
type Config struct {
	Addr        string
	HostKeyPath string
	// BaseURL prefixes links printed by the share command.
	BaseURL string
}
