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

package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/example/messaging-operator/internal/events"
	"github.com/example/messaging-operator/internal/kind"
	"github.com/example/messaging-operator/internal/store"
	"github.com/example/messaging-operator/internal/test/fixtures"
)

func TestRecorderObservesStore(t *testing.T) {
	registry := prometheus.NewRegistry()

	recorder, err := NewRecorder(registry)
	if err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}

	log := zap.NewNop().Sugar()
	bus := events.NewBus(log)
	bus.AddListener(recorder.ObserveEvent)

	s := store.New(log, store.WithEventBus(bus))

	for _, obj := range fixtures.Tenant("orders") {
		k, _ := kind.Of(obj)
		if _, err := s.Create(k, fixtures.Namespace, obj); err != nil {
			t.Fatalf("Failed to create %s: %v", obj.GetName(), err)
		}
	}

	_, _ = s.Create(kind.Topic, fixtures.Namespace, fixtures.NewTopic("rogue", "orders-sa", "payments"))
	_, _ = s.Delete(kind.Topic, fixtures.Namespace, "missing")

	expected := `
# HELP messaging_operator_store_mutations_total Total number of store mutations per operation, kind and result
# TYPE messaging_operator_store_mutations_total counter
messaging_operator_store_mutations_total{kind="ACL",operation="CREATE",result="SUCCESS"} 1
messaging_operator_store_mutations_total{kind="ApplicationService",operation="CREATE",result="SUCCESS"} 1
messaging_operator_store_mutations_total{kind="ConsumerGroup",operation="CREATE",result="SUCCESS"} 1
messaging_operator_store_mutations_total{kind="ServiceAccount",operation="CREATE",result="SUCCESS"} 1
messaging_operator_store_mutations_total{kind="Topic",operation="CREATE",result="SUCCESS"} 1
messaging_operator_store_mutations_total{kind="Topic",operation="CREATE",result="VALIDATION_ERROR"} 1
messaging_operator_store_mutations_total{kind="Topic",operation="DELETE",result="NOT_FOUND"} 1
messaging_operator_store_mutations_total{kind="VirtualCluster",operation="CREATE",result="SUCCESS"} 1
`

	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "messaging_operator_store_mutations_total"); err != nil {
		t.Fatal(err)
	}

	if inFlight := testutil.ToFloat64(recorder.mutationsInFlight); inFlight != 0 {
		t.Fatalf("Expected no mutations in flight, got %v.", inFlight)
	}
}

func TestRecorderObservesAdmissions(t *testing.T) {
	recorder, err := NewRecorder(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}

	recorder.ObserveAdmission(kind.Topic, "UPDATE", true)
	recorder.ObserveAdmission(kind.Topic, "UPDATE", false)
	recorder.ObserveAdmission(kind.Topic, "UPDATE", false)

	if v := testutil.ToFloat64(recorder.admissionsTotal.WithLabelValues("Topic", "UPDATE", "false")); v != 2 {
		t.Fatalf("Expected 2 denied updates, got %v.", v)
	}

	if count := testutil.CollectAndCount(recorder.admissionsTotal); count != 2 {
		t.Fatalf("Expected 2 series, got %d.", count)
	}
}

func TestRecorderDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	if _, err := NewRecorder(registry); err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}

	if _, err := NewRecorder(registry); err == nil {
		t.Fatal("Expected registering the metrics twice to fail.")
	}
}
