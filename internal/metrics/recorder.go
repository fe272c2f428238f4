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
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/messaging-operator/internal/events"
	"github.com/example/messaging-operator/internal/kind"
)

const namespace = "messaging_operator"

// Recorder exposes store mutations and admission decisions as Prometheus metrics.
type Recorder struct {
	// mutationsTotal counts finished store mutations by operation, kind and
	// result, i.e. every AFTER event.
	mutationsTotal *prometheus.CounterVec

	// mutationsInFlight is incremented on BEFORE and decremented on AFTER events.
	mutationsInFlight prometheus.Gauge

	// admissionsTotal counts admission decisions.
	admissionsTotal *prometheus.CounterVec
}

func NewRecorder(registerer prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "Total number of store mutations per operation, kind and result",
		}, []string{"operation", "kind", "result"}),

		mutationsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_mutations_in_flight",
			Help:      "Number of store mutations currently being processed",
		}),

		admissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Total number of admission decisions per kind, operation and outcome",
		}, []string{"kind", "operation", "allowed"}),
	}

	for _, c := range []prometheus.Collector{r.mutationsTotal, r.mutationsInFlight, r.admissionsTotal} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return r, nil
}

// ObserveEvent is an events.Listener.
func (r *Recorder) ObserveEvent(event events.Event) {
	if event.Phase == events.PhaseBefore {
		r.mutationsInFlight.Inc()
		return
	}

	r.mutationsInFlight.Dec()
	r.mutationsTotal.WithLabelValues(string(event.Operation), event.Kind.String(), string(event.Result)).Inc()
}

func (r *Recorder) ObserveAdmission(k kind.Kind, operation string, allowed bool) {
	r.admissionsTotal.WithLabelValues(k.String(), operation, strconv.FormatBool(allowed)).Inc()
}
