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

package certificates

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func mustSucceed(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

type keyPair struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

func newKeyPair(t *testing.T, cn string, validFor time.Duration, parent *keyPair) *keyPair {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	mustSucceed(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(validFor),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
	}

	signer, signerKey := template, key
	if parent == nil {
		template.IsCA = true
		template.BasicConstraintsValid = true
		template.KeyUsage |= x509.KeyUsageCertSign
	} else {
		template.DNSNames = []string{cn}
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
		signer, signerKey = parent.cert, parent.key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, signer, &key.PublicKey, signerKey)
	mustSucceed(t, err)

	cert, err := x509.ParseCertificate(der)
	mustSucceed(t, err)

	return &keyPair{cert: cert, key: key}
}

func (kp *keyPair) write(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	certFile := filepath.Join(dir, "tls.crt")
	keyFile := filepath.Join(dir, "tls.key")

	keyDER, err := x509.MarshalECPrivateKey(kp.key)
	mustSucceed(t, err)

	mustSucceed(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: kp.cert.Raw}), 0o600))
	mustSucceed(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))

	return certFile, keyFile
}

func TestLoad(t *testing.T) {
	ca := newKeyPair(t, "ca", 365*24*time.Hour, nil)
	serving := newKeyPair(t, "webhook.default.svc", 90*24*time.Hour, ca)

	certFile, _ := serving.write(t)

	loaded, err := Load(certFile)
	mustSucceed(t, err)

	if cn := loaded.Subject.CommonName; cn != "webhook.default.svc" {
		t.Errorf("Expected common name webhook.default.svc but got %q.", cn)
	}

	sum := sha256.Sum256(serving.cert.Raw)
	if expected := hex.EncodeToString(sum[:])[:20]; Fingerprint(loaded) != expected {
		t.Errorf("Expected fingerprint %s but got %s.", expected, Fingerprint(loaded))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.crt")); err == nil {
		t.Error("Expected loading a missing file to fail.")
	}
}

func TestCertWillExpireSoon(t *testing.T) {
	ca := newKeyPair(t, "ca", 365*24*time.Hour, nil)

	if CertWillExpireSoon(newKeyPair(t, "long", 90*24*time.Hour, ca).cert) {
		t.Error("Expected a certificate valid for 90 days to not expire soon.")
	}

	if !CertWillExpireSoon(newKeyPair(t, "short", 10*24*time.Hour, ca).cert) {
		t.Error("Expected a certificate valid for 10 days to expire soon.")
	}
}

func TestIsValidForHost(t *testing.T) {
	ca := newKeyPair(t, "ca", 365*24*time.Hour, nil)
	otherCA := newKeyPair(t, "other-ca", 365*24*time.Hour, nil)
	serving := newKeyPair(t, "webhook.default.svc", 90*24*time.Hour, ca)

	testcases := []struct {
		name     string
		host     string
		ca       *keyPair
		expected bool
	}{
		{name: "matching host and CA", host: "webhook.default.svc", ca: ca, expected: true},
		{name: "wrong host", host: "other.default.svc", ca: ca},
		{name: "foreign CA", host: "webhook.default.svc", ca: otherCA},
	}

	for _, testcase := range testcases {
		t.Run(testcase.name, func(t *testing.T) {
			valid, err := IsValidForHost(serving.cert, testcase.host, testcase.ca.cert)
			if valid != testcase.expected {
				t.Fatalf("Expected %v but got %v (error: %v).", testcase.expected, valid, err)
			}

			if !testcase.expected && err == nil {
				t.Fatal("Expected a verification error.")
			}
		})
	}
}

func TestServing(t *testing.T) {
	ca := newKeyPair(t, "ca", 365*24*time.Hour, nil)
	serving := newKeyPair(t, "webhook.default.svc", 90*24*time.Hour, ca)
	certFile, keyFile := serving.write(t)

	s, err := NewServing(certFile, keyFile, zap.NewNop().Sugar())
	mustSucceed(t, err)

	tlsCert, err := s.TLSConfig().GetCertificate(nil)
	mustSucceed(t, err)

	if !bytes.Equal(serving.cert.Raw, tlsCert.Certificate[0]) {
		t.Fatal("Expected the watcher to serve the certificate from disk.")
	}
}
