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

package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/example/messaging-operator/internal/kind"
	"github.com/example/messaging-operator/internal/test/fixtures"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"
)

type mapLookup map[string]messagingv1.OwnedResource

func newMapLookup(t *testing.T, objs ...messagingv1.OwnedResource) mapLookup {
	lookup := mapLookup{}
	for _, obj := range objs {
		k, err := kind.Of(obj)
		if err != nil {
			t.Fatalf("Invalid fixture: %v", err)
		}
		lookup[fmt.Sprintf("%s/%s/%s", k, obj.GetNamespace(), obj.GetName())] = obj
	}

	return lookup
}

func (l mapLookup) Get(k kind.Kind, namespace, name string) messagingv1.OwnedResource {
	if obj, ok := l[fmt.Sprintf("%s/%s/%s", k, namespace, name)]; ok {
		return obj
	}

	return nil
}

func TestValidateCreate(t *testing.T) {
	ns := fixtures.Namespace

	existing := append(fixtures.Tenant("orders"), fixtures.Tenant("payments")...)

	testcases := []struct {
		name     string
		existing []messagingv1.OwnedResource
		obj      messagingv1.OwnedResource
		opts     []Option
		// expected is a list of substrings the message must contain;
		// an empty list means the result must be valid.
		expected []string
	}{
		{
			name: "application service is always valid",
			obj:  fixtures.NewApplicationService("orders"),
		},
		{
			name:     "virtual cluster with existing owner",
			existing: existing,
			obj:      fixtures.NewVirtualCluster("new-vc", "orders"),
		},
		{
			name:     "virtual cluster with missing owner",
			existing: existing,
			obj:      fixtures.NewVirtualCluster("new-vc", "shipping"),
			expected: []string{"ApplicationService 'shipping' does not exist"},
		},
		{
			name:     "virtual cluster without owner",
			existing: existing,
			obj:      fixtures.NewVirtualCluster("new-vc", ""),
			expected: []string{"must have applicationServiceRef"},
		},
		{
			name:     "service account in own cluster",
			existing: existing,
			obj:      fixtures.NewServiceAccount("new-sa", "orders-vc", "orders"),
		},
		{
			name:     "service account with missing owner",
			existing: existing,
			obj:      fixtures.NewServiceAccount("new-sa", "orders-vc", "shipping"),
			expected: []string{"ApplicationService 'shipping' does not exist"},
		},
		{
			name:     "service account with missing cluster",
			existing: existing,
			obj:      fixtures.NewServiceAccount("new-sa", "missing-vc", "orders"),
			expected: []string{"VirtualCluster 'missing-vc' does not exist"},
		},
		{
			name:     "service account in foreign cluster",
			existing: existing,
			obj:      fixtures.NewServiceAccount("new-sa", "orders-vc", "payments"),
			expected: []string{"VirtualCluster 'orders-vc' is owned by 'orders', not 'payments'"},
		},
		{
			name:     "topic on own service account",
			existing: existing,
			obj:      fixtures.NewTopic("new-topic", "orders-sa", "orders"),
		},
		{
			name:     "topic on missing service account",
			existing: existing,
			obj:      fixtures.NewTopic("new-topic", "missing-sa", "orders"),
			expected: []string{"ServiceAccount 'missing-sa' does not exist"},
		},
		{
			name:     "topic on foreign service account",
			existing: existing,
			obj:      fixtures.NewTopic("new-topic", "orders-sa", "payments"),
			expected: []string{"ServiceAccount 'orders-sa' is owned by 'orders', not 'payments'"},
		},
		{
			name:     "topic without owner",
			existing: existing,
			obj:      fixtures.NewTopic("new-topic", "orders-sa", ""),
			expected: []string{"must have applicationServiceRef"},
		},
		{
			name:     "consumer group on own service account",
			existing: existing,
			obj:      fixtures.NewConsumerGroup("new-cg", "payments-sa", "payments"),
		},
		{
			name:     "consumer group on foreign service account",
			existing: existing,
			obj:      fixtures.NewConsumerGroup("new-cg", "payments-sa", "orders"),
			expected: []string{"'payments'", "'orders'"},
		},
		{
			name:     "topic ACL on own service account",
			existing: existing,
			obj:      fixtures.NewTopicACL("new-acl", "orders-sa", "orders-events", "orders"),
		},
		{
			name:     "consumer group ACL on own service account",
			existing: existing,
			obj:      fixtures.NewConsumerGroupACL("new-acl", "orders-sa", "orders-consumers", "orders"),
		},
		{
			name:     "ACL on foreign service account",
			existing: existing,
			obj:      fixtures.NewTopicACL("new-acl", "orders-sa", "orders-events", "payments"),
			expected: []string{"ServiceAccount 'orders-sa' is owned by 'orders', not 'payments'"},
		},
		{
			name:     "ACL with both targets",
			existing: existing,
			obj: func() messagingv1.OwnedResource {
				acl := fixtures.NewTopicACL("new-acl", "orders-sa", "orders-events", "orders")
				acl.Spec.ConsumerGroupRef = "orders-consumers"
				return acl
			}(),
			expected: []string{"Exactly one of topicRef or consumerGroupRef"},
		},
		{
			name:     "ACL without target",
			existing: existing,
			obj:      fixtures.NewTopicACL("new-acl", "orders-sa", "", "orders"),
			expected: []string{"Exactly one of topicRef or consumerGroupRef"},
		},
		{
			name:     "ACL on missing topic without target check",
			existing: existing,
			obj:      fixtures.NewTopicACL("new-acl", "orders-sa", "missing-topic", "orders"),
		},
		{
			name:     "ACL on missing topic with target check",
			existing: existing,
			opts:     []Option{WithACLTargetCheck()},
			obj:      fixtures.NewTopicACL("new-acl", "orders-sa", "missing-topic", "orders"),
			expected: []string{"Topic 'missing-topic' does not exist"},
		},
		{
			name:     "ACL on foreign consumer group with target check",
			existing: existing,
			opts:     []Option{WithACLTargetCheck()},
			obj: func() messagingv1.OwnedResource {
				// a consumer group owned by payments, attached to an orders ACL
				return fixtures.NewConsumerGroupACL("new-acl", "orders-sa", "payments-consumers", "orders")
			}(),
			expected: []string{"ConsumerGroup 'payments-consumers' is owned by 'payments', not 'orders'"},
		},
		{
			name:     "ACL on own topic with target check",
			existing: existing,
			opts:     []Option{WithACLTargetCheck()},
			obj:      fixtures.NewTopicACL("new-acl", "orders-sa", "orders-events", "orders"),
		},
	}

	for _, testcase := range testcases {
		t.Run(testcase.name, func(t *testing.T) {
			validator := NewValidator(newMapLookup(t, testcase.existing...), testcase.opts...)

			result := validator.ValidateCreate(testcase.obj, ns)
			assertResult(t, result, testcase.expected)
		})
	}
}

func TestValidateCreateIsNamespaced(t *testing.T) {
	validator := NewValidator(newMapLookup(t, fixtures.Tenant("orders")...))

	result := validator.ValidateCreate(fixtures.NewVirtualCluster("vc", "orders"), "production")
	assertResult(t, result, []string{"ApplicationService 'orders' does not exist"})
}

func TestValidateUpdate(t *testing.T) {
	testcases := []struct {
		name     string
		existing messagingv1.OwnedResource
		incoming messagingv1.OwnedResource
		expected []string
	}{
		{
			name:     "unchanged owner with changed spec",
			existing: fixtures.NewTopic("t", "orders-sa", "orders"),
			incoming: func() messagingv1.OwnedResource {
				topic := fixtures.NewTopic("t", "other-sa", "orders")
				topic.Spec.Partitions = 24
				return topic
			}(),
		},
		{
			name:     "changed owner",
			existing: fixtures.NewTopic("t", "orders-sa", "orders"),
			incoming: fixtures.NewTopic("t", "orders-sa", "payments"),
			expected: []string{"Cannot change applicationServiceRef from 'orders' to 'payments'", "Only the original owner can modify this resource"},
		},
		{
			name:     "removed owner",
			existing: fixtures.NewServiceAccount("sa", "vc", "orders"),
			incoming: fixtures.NewServiceAccount("sa", "vc", ""),
			expected: []string{"must have applicationServiceRef"},
		},
		{
			name:     "previously missing owner",
			existing: fixtures.NewVirtualCluster("vc", ""),
			incoming: fixtures.NewVirtualCluster("vc", "orders"),
			expected: []string{"must have applicationServiceRef"},
		},
		{
			name:     "application service",
			existing: fixtures.NewApplicationService("orders"),
			incoming: fixtures.NewApplicationService("orders"),
		},
	}

	validator := NewValidator(mapLookup{})

	for _, testcase := range testcases {
		t.Run(testcase.name, func(t *testing.T) {
			assertResult(t, validator.ValidateUpdate(testcase.existing, testcase.incoming), testcase.expected)
		})
	}
}

func TestValidateDelete(t *testing.T) {
	validator := NewValidator(mapLookup{})
	topic := fixtures.NewTopic("t", "orders-sa", "orders")

	assertResult(t, validator.ValidateDelete(topic, "orders"), nil)
	assertResult(t, validator.ValidateDelete(topic, "payments"), []string{"ApplicationService 'payments' cannot delete resource owned by 'orders'"})
	assertResult(t, validator.ValidateDelete(topic, ""), []string{"cannot delete resource owned by 'orders'"})
}

func TestResultErr(t *testing.T) {
	if err := Valid().Err(); err != nil {
		t.Fatalf("Expected no error for a valid result, got %v.", err)
	}

	err := Invalid("ServiceAccount '%s' is owned by '%s', not '%s'", "sa", "a", "b").Err()
	if err == nil || err.Error() != "ServiceAccount 'sa' is owned by 'a', not 'b'" {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func assertResult(t *testing.T, result Result, expected []string) {
	t.Helper()

	if len(expected) == 0 {
		if !result.Valid {
			t.Fatalf("Expected result to be valid, but got %q.", result.Message)
		}
		return
	}

	if result.Valid {
		t.Fatalf("Expected result to be invalid, but it was valid.")
	}

	for _, substring := range expected {
		if !strings.Contains(result.Message, substring) {
			t.Errorf("Expected message %q to contain %q.", result.Message, substring)
		}
	}
}
