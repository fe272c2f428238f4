/*
Copyright 2025 The KCP Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package certificates loads the webhook serving certificate and reloads
// it whenever the files on disk change.
package certificates

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"sigs.k8s.io/controller-runtime/pkg/certwatcher"
)

const (
	minimumCertValidity = 30 * 24 * time.Hour
)

// Load parses the first certificate in the given PEM file.
func Load(filename string) (*x509.Certificate, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.New("no certificate found")
		}

		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
}

// Fingerprint identifies a certificate in log output by the first 20 hex
// digits of its SHA-256.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])[:20]
}

// CertWillExpireSoon returns if the certificate will expire in the next 30 days.
func CertWillExpireSoon(cert *x509.Certificate) bool {
	return time.Until(cert.NotAfter) < minimumCertValidity
}

// IsValidForHost verifies that cert is currently valid, is signed by ca
// and covers the given host name.
func IsValidForHost(cert *x509.Certificate, host string, ca *x509.Certificate) (bool, error) {
	if CertWillExpireSoon(cert) {
		return false, nil
	}

	certPool := x509.NewCertPool()
	certPool.AddCert(ca)
	verifyOptions := x509.VerifyOptions{
		DNSName:   host,
		Roots:     certPool,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if _, err := cert.Verify(verifyOptions); err != nil {
		return false, err
	}

	return true, nil
}

// Serving watches a certificate/key pair on disk.
type Serving struct {
	watcher *certwatcher.CertWatcher
	log     *zap.SugaredLogger
}

func NewServing(certFile, keyFile string, log *zap.SugaredLogger) (*Serving, error) {
	log = log.Named("certificates")

	cert, err := Load(certFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	certLog := log.With("subject", cert.Subject.CommonName, "fingerprint", Fingerprint(cert), "expires", cert.NotAfter.Format(time.RFC3339))
	if CertWillExpireSoon(cert) {
		certLog.Warn("Serving certificate will expire soon")
	} else {
		certLog.Info("Loaded serving certificate")
	}

	watcher, err := certwatcher.New(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to watch certificate: %w", err)
	}

	return &Serving{watcher: watcher, log: log}, nil
}

// TLSConfig returns a server configuration that always presents the most
// recently loaded certificate.
func (s *Serving) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: s.watcher.GetCertificate,
	}
}

// Start watches the files until ctx is cancelled.
func (s *Serving) Start(ctx context.Context) error {
	s.log.Debug("Watching serving certificate")
	return s.watcher.Start(ctx)
}
