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
	"context"
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/example/messaging-operator/internal/kind"
	"github.com/example/messaging-operator/internal/test/fixtures"
	"github.com/example/messaging-operator/internal/validation"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	admissionv1 "k8s.io/api/admission/v1"
	authenticationv1 "k8s.io/api/authentication/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"
)

type emptyLookup struct{}

func (emptyLookup) Get(kind.Kind, string, string) messagingv1.OwnedResource {
	return nil
}

type decision struct {
	kind      kind.Kind
	operation string
	allowed   bool
}

type fakeRecorder struct {
	decisions []decision
}

func (r *fakeRecorder) ObserveAdmission(k kind.Kind, operation string, allowed bool) {
	r.decisions = append(r.decisions, decision{kind: k, operation: operation, allowed: allowed})
}

func mustMarshal(t *testing.T, obj any) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("Failed to marshal object: %v", err)
	}

	return data
}

func newRequest(op admissionv1.Operation, oldObj, newObj []byte) admission.Request {
	return admission.Request{
		AdmissionRequest: admissionv1.AdmissionRequest{
			UID:       types.UID("test-uid"),
			Operation: op,
			Namespace: fixtures.Namespace,
			Name:      "orders-events",
			UserInfo:  authenticationv1.UserInfo{Username: "system:serviceaccount:kube-system:reconciler"},
			Object:    runtime.RawExtension{Raw: newObj},
			OldObject: runtime.RawExtension{Raw: oldObj},
		},
	}
}

func newTestHandler(k kind.Kind) *Handler {
	return NewHandler(k, validation.NewValidator(emptyLookup{}), zap.NewNop().Sugar())
}

func TestHandleUpdate(t *testing.T) {
	g := NewWithT(t)

	oldTopic := mustMarshal(t, fixtures.NewTopic("orders-events", "orders-sa", "orders"))

	scaled := fixtures.NewTopic("orders-events", "orders-sa", "orders")
	scaled.Spec.Partitions = 24

	hijacked := fixtures.NewTopic("orders-events", "orders-sa", "payments")

	tests := []struct {
		name            string
		newObj          []byte
		expectAllowed   bool
		expectCode      int32
		expectSubstring []string
	}{
		{
			name:          "spec change keeping the owner is allowed",
			newObj:        mustMarshal(t, scaled),
			expectAllowed: true,
		},
		{
			name:            "owner change is denied",
			newObj:          mustMarshal(t, hijacked),
			expectAllowed:   false,
			expectCode:      http.StatusForbidden,
			expectSubstring: []string{"Cannot change applicationServiceRef from 'orders' to 'payments'"},
		},
		{
			name: "removed owner is denied",
			newObj: func() []byte {
				data, err := sjson.DeleteBytes(oldTopic, "spec.applicationServiceRef")
				g.Expect(err).NotTo(HaveOccurred())
				return data
			}(),
			expectAllowed:   false,
			expectCode:      http.StatusForbidden,
			expectSubstring: []string{"must have applicationServiceRef"},
		},
		{
			name:            "malformed object is rejected",
			newObj:          []byte(`{"spec": "not-an-object"}`),
			expectAllowed:   false,
			expectCode:      http.StatusBadRequest,
			expectSubstring: []string{"failed to validate update"},
		},
		{
			name:            "missing object is rejected",
			newObj:          nil,
			expectAllowed:   false,
			expectCode:      http.StatusBadRequest,
			expectSubstring: []string{"object is missing"},
		},
		{
			name: "object of another kind is rejected",
			newObj: func() []byte {
				data, err := sjson.SetBytes(oldTopic, "kind", "ACL")
				g.Expect(err).NotTo(HaveOccurred())
				return data
			}(),
			expectAllowed:   false,
			expectCode:      http.StatusBadRequest,
			expectSubstring: []string{"expected object to be a Topic but got a ACL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			resp := newTestHandler(kind.Topic).Handle(context.Background(), newRequest(admissionv1.Update, oldTopic, tt.newObj))

			g.Expect(resp.Allowed).To(Equal(tt.expectAllowed))
			if tt.expectAllowed {
				return
			}

			g.Expect(resp.Result).NotTo(BeNil())
			g.Expect(resp.Result.Code).To(Equal(tt.expectCode))
			for _, substring := range tt.expectSubstring {
				g.Expect(resp.Result.Message).To(ContainSubstring(substring))
			}
		})
	}
}

func TestHandleOtherOperations(t *testing.T) {
	g := NewWithT(t)

	// this would fail validation, but CREATE is not checked by default
	orphan := mustMarshal(t, fixtures.NewServiceAccount("sa", "missing-vc", "nobody"))

	for _, op := range []admissionv1.Operation{admissionv1.Create, admissionv1.Delete, admissionv1.Connect} {
		resp := newTestHandler(kind.ServiceAccount).Handle(context.Background(), newRequest(op, orphan, orphan))
		g.Expect(resp.Allowed).To(BeTrue(), "operation %s should be allowed", op)
	}
}

func TestHandleCreateEnforced(t *testing.T) {
	g := NewWithT(t)

	handler := newTestHandler(kind.ServiceAccount)
	handler.enforceCreate = true

	orphan := mustMarshal(t, fixtures.NewServiceAccount("sa", "missing-vc", "nobody"))

	resp := handler.Handle(context.Background(), newRequest(admissionv1.Create, nil, orphan))
	g.Expect(resp.Allowed).To(BeFalse())
	g.Expect(resp.Result.Message).To(ContainSubstring("ApplicationService 'nobody' does not exist"))

	// updates are still only checked for owner changes
	resp = handler.Handle(context.Background(), newRequest(admissionv1.Update, orphan, orphan))
	g.Expect(resp.Allowed).To(BeTrue())
}

func TestHandleIncompleteRequest(t *testing.T) {
	g := NewWithT(t)

	resp := newTestHandler(kind.Topic).Handle(context.Background(), admission.Request{})
	g.Expect(resp.Allowed).To(BeFalse())
	g.Expect(resp.Result.Message).To(ContainSubstring("uid and operation are required"))
}

func TestHandleRecordsDecisions(t *testing.T) {
	g := NewWithT(t)

	recorder := &fakeRecorder{}
	handler := newTestHandler(kind.ACL)
	handler.recorder = recorder

	oldACL := mustMarshal(t, fixtures.NewTopicACL("acl", "orders-sa", "orders-events", "orders"))
	newACL := mustMarshal(t, fixtures.NewTopicACL("acl", "orders-sa", "orders-events", "payments"))

	handler.Handle(context.Background(), newRequest(admissionv1.Update, oldACL, oldACL))
	handler.Handle(context.Background(), newRequest(admissionv1.Update, oldACL, newACL))
	handler.Handle(context.Background(), newRequest(admissionv1.Delete, oldACL, nil))

	g.Expect(recorder.decisions).To(Equal([]decision{
		{kind: kind.ACL, operation: "UPDATE", allowed: true},
		{kind: kind.ACL, operation: "UPDATE", allowed: false},
		{kind: kind.ACL, operation: "DELETE", allowed: true},
	}))
}
