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

// Package validation enforces the ownership rules of the messaging resource
// hierarchy. Every resource below an ApplicationService names its owning
// ApplicationService and its structural parent; both must agree.
package validation

import (
	"github.com/example/messaging-operator/internal/kind"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"
)

const missingOwnerMessage = "Resource must have applicationServiceRef"

// Lookup resolves references during validation. Implementations return nil
// if the resource does not exist.
type Lookup interface {
	Get(k kind.Kind, namespace, name string) messagingv1.OwnedResource
}

// Validator checks that creates, updates and deletes stay within the
// authority of the owning ApplicationService. It never mutates anything.
type Validator struct {
	lookup          Lookup
	checkACLTargets bool
}

type Option func(*Validator)

// WithACLTargetCheck makes ValidateCreate also require the Topic or
// ConsumerGroup referenced by an ACL to exist and share the ACL's owner.
func WithACLTargetCheck() Option {
	return func(v *Validator) {
		v.checkACLTargets = true
	}
}

func NewValidator(lookup Lookup, opts ...Option) *Validator {
	v := &Validator{
		lookup: lookup,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// ValidateCreate checks the resource against its immediate parent in the
// given namespace. Chains are verified one hop at a time.
func (v *Validator) ValidateCreate(obj messagingv1.OwnedResource, namespace string) Result {
	switch asserted := obj.(type) {
	case *messagingv1.ApplicationService:
		return Valid()

	case *messagingv1.VirtualCluster:
		return v.requireApplicationService(asserted.Spec.ApplicationServiceRef, namespace)

	case *messagingv1.ServiceAccount:
		owner := asserted.Spec.ApplicationServiceRef
		if result := v.requireApplicationService(owner, namespace); !result.Valid {
			return result
		}

		return v.requireOwnedParent(kind.VirtualCluster, namespace, asserted.Spec.ClusterRef, owner)

	case *messagingv1.Topic:
		return v.requireServiceAccount(asserted.Spec.ServiceRef, namespace, asserted.Spec.ApplicationServiceRef)

	case *messagingv1.ConsumerGroup:
		return v.requireServiceAccount(asserted.Spec.ServiceRef, namespace, asserted.Spec.ApplicationServiceRef)

	case *messagingv1.ACL:
		return v.validateACL(asserted, namespace)

	default:
		return Invalid("Unsupported resource type %T", obj)
	}
}

// ValidateUpdate only checks that the owner did not change; all other
// fields may change freely.
func (v *Validator) ValidateUpdate(existing, incoming messagingv1.OwnedResource) Result {
	existingOwner := existing.ApplicationServiceRef()
	newOwner := incoming.ApplicationServiceRef()

	if existingOwner == "" || newOwner == "" {
		return Invalid(missingOwnerMessage)
	}

	if existingOwner != newOwner {
		return Invalid("Cannot change applicationServiceRef from '%s' to '%s'. Only the original owner can modify this resource", existingOwner, newOwner)
	}

	return Valid()
}

func (v *Validator) ValidateDelete(obj messagingv1.OwnedResource, requestingOwner string) Result {
	if owner := obj.ApplicationServiceRef(); requestingOwner != owner {
		return Invalid("ApplicationService '%s' cannot delete resource owned by '%s'", requestingOwner, owner)
	}

	return Valid()
}

func (v *Validator) validateACL(acl *messagingv1.ACL, namespace string) Result {
	owner := acl.Spec.ApplicationServiceRef

	if result := v.requireServiceAccount(acl.Spec.ServiceRef, namespace, owner); !result.Valid {
		return result
	}

	hasTopic := acl.Spec.TopicRef != ""
	hasConsumerGroup := acl.Spec.ConsumerGroupRef != ""

	if hasTopic == hasConsumerGroup {
		return Invalid("Exactly one of topicRef or consumerGroupRef must be specified")
	}

	if !v.checkACLTargets {
		return Valid()
	}

	if hasTopic {
		return v.requireOwnedParent(kind.Topic, namespace, acl.Spec.TopicRef, owner)
	}

	return v.requireOwnedParent(kind.ConsumerGroup, namespace, acl.Spec.ConsumerGroupRef, owner)
}

func (v *Validator) requireApplicationService(name, namespace string) Result {
	if name == "" {
		return Invalid(missingOwnerMessage)
	}

	if v.lookup.Get(kind.ApplicationService, namespace, name) == nil {
		return Invalid("Referenced ApplicationService '%s' does not exist", name)
	}

	return Valid()
}

func (v *Validator) requireServiceAccount(name, namespace, expectedOwner string) Result {
	if expectedOwner == "" {
		return Invalid(missingOwnerMessage)
	}

	return v.requireOwnedParent(kind.ServiceAccount, namespace, name, expectedOwner)
}

func (v *Validator) requireOwnedParent(k kind.Kind, namespace, name, expectedOwner string) Result {
	parent := v.lookup.Get(k, namespace, name)
	if parent == nil {
		return Invalid("Referenced %s '%s' does not exist", k, name)
	}

	if owner := parent.ApplicationServiceRef(); owner != expectedOwner {
		return Invalid("%s '%s' is owned by '%s', not '%s'", k, name, owner, expectedOwner)
	}

	return Valid()
}
