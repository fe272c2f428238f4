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

package admission

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/example/messaging-operator/internal/kind"
	"github.com/example/messaging-operator/internal/test/fixtures"
	"github.com/example/messaging-operator/internal/validation"

	admissionv1 "k8s.io/api/admission/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()

	server, err := NewServer(validation.NewValidator(emptyLookup{}), zap.NewNop().Sugar(), opts)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)

	return ts
}

func review(t *testing.T, op admissionv1.Operation, oldObj, newObj []byte) []byte {
	t.Helper()

	ar := admissionv1.AdmissionReview{
		Request: &admissionv1.AdmissionRequest{
			UID:       "test-uid",
			Operation: op,
			Namespace: fixtures.Namespace,
			Object:    runtime.RawExtension{Raw: newObj},
			OldObject: runtime.RawExtension{Raw: oldObj},
		},
	}
	ar.SetGroupVersionKind(admissionv1.SchemeGroupVersion.WithKind("AdmissionReview"))

	return mustMarshal(t, ar)
}

func post(t *testing.T, url string, body []byte) admissionv1.AdmissionReview {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected HTTP 200, got %d.", resp.StatusCode)
	}

	ar := admissionv1.AdmissionReview{}
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	return ar
}

func TestServerRoutes(t *testing.T) {
	g := NewWithT(t)

	server, err := NewServer(validation.NewValidator(emptyLookup{}), zap.NewNop().Sugar(), Options{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(server.Routes()).To(Equal([]string{
		"/validate/virtual-cluster",
		"/validate/service-account",
		"/validate/topic",
		"/validate/consumer-group",
		"/validate/acl",
	}))

	_, err = NewServer(validation.NewValidator(emptyLookup{}), zap.NewNop().Sugar(), Options{Kinds: []kind.Kind{"Broker"}})
	g.Expect(err).To(HaveOccurred())
}

func TestServerUpdateReview(t *testing.T) {
	g := NewWithT(t)
	ts := newTestServer(t, Options{})

	oldSA := mustMarshal(t, fixtures.NewServiceAccount("orders-sa", "orders-vc", "orders"))
	newSA := mustMarshal(t, fixtures.NewServiceAccount("orders-sa", "orders-vc", "payments"))

	ar := post(t, ts.URL+"/validate/service-account", review(t, admissionv1.Update, oldSA, oldSA))
	g.Expect(ar.Kind).To(Equal("AdmissionReview"))
	g.Expect(ar.APIVersion).To(Equal("admission.k8s.io/v1"))
	g.Expect(ar.Response).NotTo(BeNil())
	g.Expect(ar.Response.UID).To(BeEquivalentTo("test-uid"))
	g.Expect(ar.Response.Allowed).To(BeTrue())

	ar = post(t, ts.URL+"/validate/service-account", review(t, admissionv1.Update, oldSA, newSA))
	g.Expect(ar.Response.UID).To(BeEquivalentTo("test-uid"))
	g.Expect(ar.Response.Allowed).To(BeFalse())
	g.Expect(ar.Response.Result.Message).To(ContainSubstring("Cannot change applicationServiceRef from 'orders' to 'payments'"))
}

func TestServerDeleteReview(t *testing.T) {
	g := NewWithT(t)
	ts := newTestServer(t, Options{})

	oldTopic := mustMarshal(t, fixtures.NewTopic("orders-events", "orders-sa", "orders"))

	ar := post(t, ts.URL+"/validate/topic", review(t, admissionv1.Delete, oldTopic, nil))
	g.Expect(ar.Response.Allowed).To(BeTrue())
	g.Expect(ar.Response.UID).To(BeEquivalentTo("test-uid"))
}

func TestServerMalformedReview(t *testing.T) {
	g := NewWithT(t)
	ts := newTestServer(t, Options{})

	for _, body := range []string{`{not json`, `{"apiVersion": "admission.k8s.io/v1"}`} {
		ar := post(t, ts.URL+"/validate/acl", []byte(body))
		g.Expect(ar.Response).NotTo(BeNil())
		g.Expect(ar.Response.Allowed).To(BeFalse(), "body %q", body)
	}

	// a review without a request is denied
	ar := post(t, ts.URL+"/validate/acl", []byte(`{"apiVersion": "admission.k8s.io/v1", "kind": "AdmissionReview"}`))
	g.Expect(ar.Response.Allowed).To(BeFalse())
}

func TestServerMethodNotAllowed(t *testing.T) {
	g := NewWithT(t)
	ts := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/validate/topic")
	g.Expect(err).NotTo(HaveOccurred())
	resp.Body.Close()
	g.Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))

	resp, err = http.Post(ts.URL+"/validate/broker", "application/json", strings.NewReader("{}"))
	g.Expect(err).NotTo(HaveOccurred())
	resp.Body.Close()
	g.Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
}

func TestServerHealth(t *testing.T) {
	g := NewWithT(t)
	ts := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + HealthPath)
	g.Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))
	g.Expect(string(body)).To(Equal("OK"))
}
