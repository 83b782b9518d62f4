// Package tls serves HTTP handlers in plain HTTP, with certificate files or
// with Let's Encrypt certificates.
package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/c64basic/pkg/configuration"
	"github.com/antibyte/c64basic/pkg/logger"

	"golang.org/x/crypto/acme/autocert"
)

const shutdownTimeout = 5 * time.Second

// Config holds TLS configuration options
type Config struct {
	EnableTLS          bool
	EnableLetsEncrypt  bool
	Domain             string
	LetsEncryptEmail   string
	CertCacheDir       string
	ForceHTTPSRedirect bool
	CertFile           string
	KeyFile            string
	HTTPPort           string
	HTTPSPort          string
}

// ConfigFromSettings reads [TLS] and the HTTP port from [Network].
func ConfigFromSettings() Config {
	return Config{
		EnableTLS:          configuration.GetBool("TLS", "enable_tls", false),
		EnableLetsEncrypt:  configuration.GetBool("TLS", "enable_letsencrypt", false),
		Domain:             configuration.GetString("TLS", "domain", ""),
		LetsEncryptEmail:   configuration.GetString("TLS", "letsencrypt_email", ""),
		CertCacheDir:       configuration.GetString("TLS", "cert_cache_dir", "certs"),
		ForceHTTPSRedirect: configuration.GetBool("TLS", "force_https_redirect", false),
		CertFile:           configuration.GetString("TLS", "cert_file", ""),
		KeyFile:            configuration.GetString("TLS", "key_file", ""),
		HTTPPort:           configuration.GetString("Network", "listen_port", "8080"),
		HTTPSPort:          configuration.GetString("TLS", "https_port", "8443"),
	}
}

// Manager handles TLS certificate management including Let's Encrypt
type Manager struct {
	config      Config
	autocertMgr *autocert.Manager
	tlsConfig   *tls.Config
}

// NewManager validates cfg and prepares certificates.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{config: cfg}
	if err := m.validateConfig(); err != nil {
		return nil, fmt.Errorf("TLS configuration validation failed: %w", err)
	}
	if !cfg.EnableTLS {
		return m, nil
	}
	if cfg.EnableLetsEncrypt {
		if err := m.initializeLetsEncrypt(); err != nil {
			return nil, fmt.Errorf("TLS initialization failed: %w", err)
		}
	} else {
		m.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		logger.Info(logger.AreaTLS, "Manual TLS with cert: %s, key: %s", cfg.CertFile, cfg.KeyFile)
	}
	return m, nil
}

func (m *Manager) validateConfig() error {
	cfg := m.config
	if !cfg.EnableTLS {
		return nil
	}
	if cfg.EnableLetsEncrypt {
		if strings.TrimSpace(cfg.Domain) == "" {
			return errors.New("domain is required when Let's Encrypt is enabled")
		}
		if strings.TrimSpace(cfg.LetsEncryptEmail) == "" {
			return errors.New("letsencrypt_email is required when Let's Encrypt is enabled")
		}
		return nil
	}
	for _, f := range []struct{ key, path string }{{"cert_file", cfg.CertFile}, {"key_file", cfg.KeyFile}} {
		if f.path == "" {
			return fmt.Errorf("%s is required for manual TLS", f.key)
		}
		if _, err := os.Stat(f.path); err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
	}
	return nil
}

// initializeLetsEncrypt sets up Let's Encrypt automatic certificate management
func (m *Manager) initializeLetsEncrypt() error {
	cfg := m.config
	if err := os.MkdirAll(cfg.CertCacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create certificate cache directory: %w", err)
	}
	m.autocertMgr = &autocert.Manager{
		Cache:      autocert.DirCache(cfg.CertCacheDir),
		Prompt:     autocert.AcceptTOS,
		Email:      cfg.LetsEncryptEmail,
		HostPolicy: autocert.HostWhitelist(cfg.Domain, "www."+cfg.Domain),
	}
	m.tlsConfig = m.autocertMgr.TLSConfig()
	m.tlsConfig.MinVersion = tls.VersionTLS12
	logger.Info(logger.AreaTLS, "Let's Encrypt enabled for domain: %s", cfg.Domain)
	return nil
}

// TLSConfig returns the server TLS configuration, nil when TLS is off.
func (m *Manager) TLSConfig() *tls.Config {
	if !m.config.EnableTLS {
		return nil
	}
	return m.tlsConfig
}

// IsEnabled returns true if TLS is enabled
func (m *Manager) IsEnabled() bool {
	return m.config.EnableTLS
}

// needsHTTPServer reports whether a plain listener runs beside HTTPS.
func (m *Manager) needsHTTPServer() bool {
	return m.config.EnableTLS && (m.config.EnableLetsEncrypt || m.config.ForceHTTPSRedirect)
}

// RedirectHandler redirects every request to the HTTPS port.
func (m *Manager) RedirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		target := "https://" + host
		if m.config.HTTPSPort != "443" {
			target += ":" + m.config.HTTPSPort
		}
		http.Redirect(w, r, target+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}

// httpHandler is what the plain listener serves in TLS mode.
func (m *Manager) httpHandler() http.Handler {
	if m.autocertMgr != nil {
		// ACME-Challenges, alles andere wird umgeleitet
		return m.autocertMgr.HTTPHandler(m.RedirectHandler())
	}
	return m.RedirectHandler()
}

// Serve runs handler until ctx is done, then shuts the servers down.
func (m *Manager) Serve(ctx context.Context, handler http.Handler) error {
	var servers []*http.Server
	errc := make(chan error, 2)

	start := func(srv *http.Server, withTLS bool) {
		servers = append(servers, srv)
		go func() {
			var err error
			if withTLS {
				err = srv.ListenAndServeTLS(m.config.CertFile, m.config.KeyFile)
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("%s: %w", srv.Addr, err)
			}
		}()
	}

	if m.config.EnableTLS {
		srv := &http.Server{
			Addr:      ":" + m.config.HTTPSPort,
			Handler:   handler,
			TLSConfig: m.tlsConfig,
		}
		// mit autocert kommen die Zertifikate aus GetCertificate
		if m.autocertMgr != nil {
			m.config.CertFile, m.config.KeyFile = "", ""
		}
		start(srv, true)
		logger.Info(logger.AreaTLS, "HTTPS listening on %s", srv.Addr)
		if m.needsHTTPServer() {
			start(&http.Server{Addr: ":" + m.config.HTTPPort, Handler: m.httpHandler()}, false)
		}
	} else {
		start(&http.Server{Addr: ":" + m.config.HTTPPort, Handler: handler}, false)
		logger.Info(logger.AreaGeneral, "HTTP listening on :%s", m.config.HTTPPort)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		srv.Shutdown(shutdownCtx)
	}
	return err
}
