package httpx

import (
	"os"

	"golang.org/x/crypto/acme/autocert"
)

// certManager gets Let's Encrypt certificates for the domain (any domain when empty)
// and keeps them in the dir.
func certManager(domain, dir string) *autocert.Manager {
	m := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache(dir),
	}
	if domain != "" {
		m.HostPolicy = autocert.HostWhitelist(domain)
	}
	return m
}

func ensureDir(dir string) error { return os.MkdirAll(dir, 0o700) }
