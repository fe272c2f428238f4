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
	"fmt"
	"net/http"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/example/messaging-operator/internal/kind"
	"github.com/example/messaging-operator/internal/validation"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	admissionv1 "k8s.io/api/admission/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/json"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"
)

// Validator is the subset of validation.Validator used during admission.
type Validator interface {
	ValidateCreate(obj messagingv1.OwnedResource, namespace string) validation.Result
	ValidateUpdate(existing, incoming messagingv1.OwnedResource) validation.Result
}

// DecisionRecorder is notified about every admission decision.
type DecisionRecorder interface {
	ObserveAdmission(k kind.Kind, operation string, allowed bool)
}

// Handler validates admission requests for a single resource kind. Only
// UPDATE requests are checked (the owner must not change), unless create
// enforcement is enabled. Everything else is allowed.
type Handler struct {
	kind          kind.Kind
	validator     Validator
	enforceCreate bool
	recorder      DecisionRecorder
	log           *zap.SugaredLogger
}

var _ admission.Handler = &Handler{}

func NewHandler(k kind.Kind, validator Validator, log *zap.SugaredLogger) *Handler {
	return &Handler{
		kind:      k,
		validator: validator,
		log:       log.With("kind", k),
	}
}

func (h *Handler) Handle(ctx context.Context, req admission.Request) admission.Response {
	response := h.handle(req)

	if h.recorder != nil {
		h.recorder.ObserveAdmission(h.kind, string(req.Operation), response.Allowed)
	}

	return response
}

func (h *Handler) handle(req admission.Request) admission.Response {
	log := h.log.With("uid", req.UID, "operation", req.Operation, "namespace", req.Namespace, "name", req.Name)

	if req.UID == "" || req.Operation == "" {
		log.Info("Rejecting incomplete admission request")
		return admission.Denied("Invalid admission request: uid and operation are required")
	}

	switch req.Operation {
	case admissionv1.Update:
		return h.validateUpdate(log, req)

	case admissionv1.Create:
		if h.enforceCreate {
			return h.validateCreate(log, req)
		}

	case admissionv1.Delete:
		log.Infow("Allowing deletion", "user", req.UserInfo.Username)
	}

	return admission.Allowed("")
}

func (h *Handler) validateUpdate(log *zap.SugaredLogger, req admission.Request) admission.Response {
	oldObj, err := h.decode(req.OldObject, "oldObject")
	if err != nil {
		log.Infow("Failed to decode admission request", zap.Error(err))
		return admission.Errored(http.StatusBadRequest, fmt.Errorf("failed to validate update: %w", err))
	}

	newObj, err := h.decode(req.Object, "object")
	if err != nil {
		log.Infow("Failed to decode admission request", zap.Error(err))
		return admission.Errored(http.StatusBadRequest, fmt.Errorf("failed to validate update: %w", err))
	}

	if patch, err := jsonpatch.CreateMergePatch(req.OldObject.Raw, req.Object.Raw); err == nil {
		log.Debugw("Validating update", "changes", string(patch))
	}

	result := h.validator.ValidateUpdate(oldObj, newObj)
	if !result.Valid {
		log.Infow("Denied update", "reason", result.Message)
		return admission.Denied(result.Message)
	}

	return admission.Allowed("")
}

func (h *Handler) validateCreate(log *zap.SugaredLogger, req admission.Request) admission.Response {
	obj, err := h.decode(req.Object, "object")
	if err != nil {
		log.Infow("Failed to decode admission request", zap.Error(err))
		return admission.Errored(http.StatusBadRequest, fmt.Errorf("failed to validate create: %w", err))
	}

	result := h.validator.ValidateCreate(obj, req.Namespace)
	if !result.Valid {
		log.Infow("Denied creation", "reason", result.Message)
		return admission.Denied(result.Message)
	}

	return admission.Allowed("")
}

func (h *Handler) decode(raw runtime.RawExtension, field string) (messagingv1.OwnedResource, error) {
	if len(raw.Raw) == 0 {
		return nil, fmt.Errorf("%s is missing", field)
	}

	if k := gjson.GetBytes(raw.Raw, "kind"); k.Exists() && k.String() != h.kind.String() {
		return nil, fmt.Errorf("expected %s to be a %s but got a %s", field, h.kind, k.String())
	}

	obj, err := kind.New(h.kind)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw.Raw, obj); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", field, err)
	}

	return obj, nil
}
