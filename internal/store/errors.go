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

package store

import (
	"errors"
	"fmt"

	"github.com/example/messaging-operator/internal/events"
	"github.com/example/messaging-operator/internal/kind"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func newAlreadyExists(k kind.Kind, name string) error {
	return apierrors.NewAlreadyExists(k.GroupResource(), name)
}

func newNotFound(k kind.Kind, name string) error {
	return apierrors.NewNotFound(k.GroupResource(), name)
}

func newOwnershipViolation(k kind.Kind, name, message string) error {
	return apierrors.NewForbidden(k.GroupResource(), name, errors.New(message))
}

// IsAlreadyExists returns true if a create failed because the key is taken.
func IsAlreadyExists(err error) bool {
	return apierrors.IsAlreadyExists(err)
}

// IsNotFound returns true if an update targeted a missing resource.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// IsOwnershipViolation returns true if the ownership rules rejected the change.
func IsOwnershipViolation(err error) bool {
	return apierrors.IsForbidden(err)
}

// resultFor maps the outcome of a mutation onto the AFTER event.
func resultFor(err error) (events.Result, string) {
	switch {
	case err == nil:
		return events.ResultSuccess, ""
	case IsOwnershipViolation(err):
		return events.ResultValidationError, string(metav1.StatusReasonForbidden)
	case IsAlreadyExists(err):
		return events.ResultFailure, string(metav1.StatusReasonAlreadyExists)
	case IsNotFound(err):
		return events.ResultFailure, string(metav1.StatusReasonNotFound)
	default:
		return events.ResultFailure, string(apierrors.ReasonForError(err))
	}
}

// tracker publishes the BEFORE event of a mutation on creation and the
// matching AFTER event when finish is called.
type tracker struct {
	bus    *events.Bus
	before events.Event

	// set by the mutation before returning
	message  string
	version  *int64
	notFound bool
}

func (s *Store) track(op events.Operation, k kind.Kind, namespace, name, owner string) *tracker {
	t := &tracker{
		bus:    s.bus,
		before: events.Before(op, k, namespace, name, owner),
	}

	t.bus.Publish(t.before)

	return t
}

// finish must be deferred and given the result of recover(); a recovered
// panic is reported as a failure and then re-raised.
func (t *tracker) finish(recovered any, err error) {
	if recovered != nil {
		after := t.before.After(events.ResultFailure, fmt.Sprintf("%v", recovered))
		after.Reason = string(metav1.StatusReasonInternalError)
		after.ErrorDetails = after.Message
		t.bus.Publish(after)

		panic(recovered)
	}

	result, reason := resultFor(err)

	message := t.message
	if err != nil {
		if message == "" {
			message = err.Error()
		}
	} else if t.notFound {
		result = events.ResultNotFound
		message = "Resource not found"
	}

	after := t.before.After(result, message)
	after.Reason = reason
	after.ResourceVersion = t.version

	if err != nil {
		after.ErrorDetails = err.Error()
	}

	t.bus.Publish(after)
}
