// Package certs provides the self-signed certificate `tender serve --tls`
// uses on a workstation or an internal network.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// DefaultValidity is how long a generated certificate is valid.
const DefaultValidity = 365 * 24 * time.Hour

// renewBefore regenerates certificates this close to expiry.
const renewBefore = 7 * 24 * time.Hour

// Config describes where certificates live and whom they cover.
type Config struct {
	Now          func() time.Time
	Dir          string
	Organization string
	// Hosts are DNS names or IP addresses. localhost and the loopback
	// addresses are always included.
	Hosts    []string
	Validity time.Duration
}

// FileManager loads a certificate from Dir or generates one.
type FileManager struct {
	config   Config
	certFile string
	keyFile  string
}

// NewFileManager creates a manager, filling unset fields with defaults.
func NewFileManager(cfg Config) *FileManager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Validity <= 0 {
		cfg.Validity = DefaultValidity
	}
	if cfg.Organization == "" {
		cfg.Organization = "tender"
	}
	return &FileManager{
		config:   cfg,
		certFile: filepath.Join(cfg.Dir, "server.crt"),
		keyFile:  filepath.Join(cfg.Dir, "server.key"),
	}
}

// TLSConfig returns a server TLS configuration using GetOrCreateCertificate.
func (m *FileManager) TLSConfig() (*tls.Config, error) {
	cert, err := m.GetOrCreateCertificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// GetOrCreateCertificate returns the stored certificate when it is readable,
// not close to expiry, and covers every configured host. Otherwise a new
// certificate replaces it.
func (m *FileManager) GetOrCreateCertificate() (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(m.certFile, m.keyFile)
	switch {
	case err == nil:
		verr := m.verify(cert)
		if verr == nil {
			return cert, nil
		}
		slog.Info("Regenerating server certificate", "reason", verr)
	case !os.IsNotExist(err):
		slog.Warn("Stored server certificate is unreadable, regenerating", "error", err)
	}
	return m.generate()
}

func (m *FileManager) hosts() ([]string, []net.IP) {
	dns := []string{"localhost"}
	ips := []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
	for _, h := range m.config.Hosts {
		if h == "" || h == "localhost" {
			continue
		}
		if ip := net.ParseIP(h); ip != nil {
			if !ip.IsLoopback() {
				ips = append(ips, ip)
			}
			continue
		}
		dns = append(dns, h)
	}
	return dns, ips
}

func (m *FileManager) generate() (tls.Certificate, error) {
	if err := os.MkdirAll(m.config.Dir, 0o700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate private key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial number: %w", err)
	}

	dns, ips := m.hosts()
	now := m.config.Now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{m.config.Organization}, CommonName: dns[0]},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(m.config.Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dns,
		IPAddresses:           ips,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to encode private key: %w", err)
	}

	if err := writePEM(m.certFile, "CERTIFICATE", der); err != nil {
		return tls.Certificate{}, err
	}
	if err := writePEM(m.keyFile, "EC PRIVATE KEY", keyDER); err != nil {
		return tls.Certificate{}, err
	}

	slog.Info("Generated server certificate", "dir", m.config.Dir, "dns", dns, "expires", template.NotAfter)
	return tls.LoadX509KeyPair(m.certFile, m.keyFile)
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func (m *FileManager) verify(cert tls.Certificate) error {
	if len(cert.Certificate) == 0 {
		return fmt.Errorf("no certificates found")
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	now := m.config.Now()
	if now.Before(x509Cert.NotBefore) {
		return fmt.Errorf("certificate not yet valid")
	}
	if now.Add(renewBefore).After(x509Cert.NotAfter) {
		return fmt.Errorf("certificate expires %s", x509Cert.NotAfter.Format(time.DateOnly))
	}

	dns, ips := m.hosts()
	for _, h := range dns {
		if err := x509Cert.VerifyHostname(h); err != nil {
			return fmt.Errorf("certificate does not cover %s", h)
		}
	}
	for _, ip := range ips {
		if err := x509Cert.VerifyHostname(ip.String()); err != nil {
			return fmt.Errorf("certificate does not cover %s", ip)
		}
	}
	return nil
}
