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

package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/messaging-operator/internal/kind"
)

type Phase string

const (
	PhaseBefore Phase = "BEFORE"
	PhaseAfter  Phase = "AFTER"
)

type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

type Result string

const (
	ResultSuccess         Result = "SUCCESS"
	ResultFailure         Result = "FAILURE"
	ResultValidationError Result = "VALIDATION_ERROR"
	ResultNotFound        Result = "NOT_FOUND"
)

// Event describes one side of a store mutation. Every mutation produces a
// BEFORE event followed by exactly one AFTER event carrying the Result.
type Event struct {
	Phase              Phase
	Operation          Operation
	Kind               kind.Kind
	Namespace          string
	Name               string
	ApplicationService string
	Timestamp          time.Time

	// The remaining fields are only set on AFTER events.

	Result       Result
	Message      string
	Reason       string
	ErrorDetails string
	// ResourceVersion is nil unless the mutation left a stored resource behind.
	ResourceVersion *int64
}

// Before returns a new BEFORE event for the given resource.
func Before(op Operation, k kind.Kind, namespace, name, applicationService string) Event {
	return Event{
		Phase:              PhaseBefore,
		Operation:          op,
		Kind:               k,
		Namespace:          namespace,
		Name:               name,
		ApplicationService: applicationService,
		Timestamp:          time.Now(),
	}
}

// After returns the matching AFTER event for a BEFORE event.
func (e Event) After(result Result, message string) Event {
	after := e
	after.Phase = PhaseAfter
	after.Timestamp = time.Now()
	after.Result = result
	after.Message = message

	return after
}

func (e Event) IsSuccess() bool {
	return e.Result == ResultSuccess
}

func (e Event) IsFailure() bool {
	return e.Result == ResultFailure || e.Result == ResultValidationError
}

// ResourceReference returns "kind/namespace/name".
func (e Event) ResourceReference() string {
	return fmt.Sprintf("%s/%s/%s", e.Kind, e.Namespace, e.Name)
}

func (e Event) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %s", e.Phase, e.Operation, e.ResourceReference())

	if e.ApplicationService != "" {
		fmt.Fprintf(&b, " (owner: %s)", e.ApplicationService)
	}

	if e.Result != "" {
		fmt.Fprintf(&b, " - %s", e.Result)
	}

	if e.ResourceVersion != nil {
		fmt.Fprintf(&b, " [v%d]", *e.ResourceVersion)
	}

	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}

	return b.String()
}
