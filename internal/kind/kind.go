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

// Package kind maps between the messaging resource kinds, their canonical
// names and their Go types.
package kind

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gobuffalo/flect"

	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

type Kind string

const (
	ApplicationService Kind = "ApplicationService"
	VirtualCluster     Kind = "VirtualCluster"
	ServiceAccount     Kind = "ServiceAccount"
	Topic              Kind = "Topic"
	ConsumerGroup      Kind = "ConsumerGroup"
	ACL                Kind = "ACL"
)

// registry lists the kinds in ownership order, parents first.
var registry = []struct {
	kind Kind
	typ  reflect.Type
}{
	{kind: ApplicationService, typ: reflect.TypeOf(messagingv1.ApplicationService{})},
	{kind: VirtualCluster, typ: reflect.TypeOf(messagingv1.VirtualCluster{})},
	{kind: ServiceAccount, typ: reflect.TypeOf(messagingv1.ServiceAccount{})},
	{kind: Topic, typ: reflect.TypeOf(messagingv1.Topic{})},
	{kind: ConsumerGroup, typ: reflect.TypeOf(messagingv1.ConsumerGroup{})},
	{kind: ACL, typ: reflect.TypeOf(messagingv1.ACL{})},
}

// All returns every known kind, parents before their children.
func All() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for _, entry := range registry {
		kinds = append(kinds, entry.kind)
	}

	return kinds
}

// Parse returns the kind with the given canonical name.
func Parse(name string) (Kind, error) {
	for _, entry := range registry {
		if string(entry.kind) == name {
			return entry.kind, nil
		}
	}

	return "", fmt.Errorf("unknown resource kind %q", name)
}

// Of returns the kind of the given object, which can be a value or a pointer
// (typed nil pointers are fine).
func Of(obj any) (Kind, error) {
	t := reflect.TypeOf(obj)
	if t == nil {
		return "", fmt.Errorf("cannot determine kind of nil")
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	for _, entry := range registry {
		if entry.typ == t {
			return entry.kind, nil
		}
	}

	return "", fmt.Errorf("unknown resource type %T", obj)
}

// New returns a new, empty object of the given kind with its TypeMeta set.
func New(k Kind) (messagingv1.OwnedResource, error) {
	for _, entry := range registry {
		if entry.kind == k {
			obj := reflect.New(entry.typ).Interface().(messagingv1.OwnedResource)
			obj.GetObjectKind().SetGroupVersionKind(k.GroupVersionKind())

			return obj, nil
		}
	}

	return nil, fmt.Errorf("unknown resource kind %q", k)
}

func (k Kind) String() string {
	return string(k)
}

// Valid returns true if k is one of the registered kinds.
func (k Kind) Valid() bool {
	_, err := Parse(string(k))
	return err == nil
}

// Plural returns the lowercase plural resource name, e.g. "serviceaccounts".
func (k Kind) Plural() string {
	return flect.Pluralize(strings.ToLower(string(k)))
}

// RouteName returns the dasherized name used in URL paths, e.g. "service-account".
func (k Kind) RouteName() string {
	return flect.Dasherize(string(k))
}

func (k Kind) GroupVersionKind() schema.GroupVersionKind {
	return messagingv1.SchemeGroupVersion.WithKind(string(k))
}

func (k Kind) GroupResource() schema.GroupResource {
	return messagingv1.Resource(k.Plural())
}
