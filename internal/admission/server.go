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

// Package admission serves the validating admission webhooks for the
// messaging resources.
package admission

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/messaging-operator/internal/kind"

	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"
)

const HealthPath = "/health"

// DefaultKinds are the kinds served when Options.Kinds is empty.
var DefaultKinds = []kind.Kind{
	kind.VirtualCluster,
	kind.ServiceAccount,
	kind.Topic,
	kind.ConsumerGroup,
	kind.ACL,
}

type Options struct {
	// Kinds to serve webhooks for, defaults to DefaultKinds.
	Kinds []kind.Kind

	// EnforceCreateOwnership makes CREATE requests subject to the full
	// ownership chain validation.
	EnforceCreateOwnership bool

	Recorder DecisionRecorder
}

// Server routes admission reviews to the handler of the kind named in the
// URL path, e.g. /validate/service-account.
type Server struct {
	mux    *http.ServeMux
	routes []string
}

func NewServer(validator Validator, log *zap.SugaredLogger, opts Options) (*Server, error) {
	log = log.Named("admission")

	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}

	s := &Server{
		mux: http.NewServeMux(),
	}

	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("unknown resource kind %q", k)
		}

		handler := NewHandler(k, validator, log)
		handler.enforceCreate = opts.EnforceCreateOwnership
		handler.recorder = opts.Recorder

		path := ValidatePath(k)
		s.mux.Handle("POST "+path, &admission.Webhook{Handler: handler})
		s.routes = append(s.routes, path)

		log.Debugw("Registered admission webhook", "kind", k, "path", path)
	}

	s.mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return s, nil
}

// ValidatePath returns the URL path the webhook for the given kind is served on.
func ValidatePath(k kind.Kind) string {
	return "/validate/" + k.RouteName()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Routes returns the webhook paths in registration order.
func (s *Server) Routes() []string {
	return append([]string{}, s.routes...)
}
