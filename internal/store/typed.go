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
	"github.com/example/messaging-operator/internal/kind"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"
)

// GetAs is a typed variant of Store.Get, the kind is derived from T.
func GetAs[T messagingv1.OwnedResource](s *Store, namespace, name string) (T, bool) {
	var zero T

	k, err := kind.Of(zero)
	if err != nil {
		return zero, false
	}

	obj, ok := s.Get(k, namespace, name).(T)
	if !ok {
		return zero, false
	}

	return obj, true
}

// ListAs is a typed variant of Store.List, the kind is derived from T.
func ListAs[T messagingv1.OwnedResource](s *Store, namespace string) []T {
	var zero T

	k, err := kind.Of(zero)
	if err != nil {
		return nil
	}

	objs := s.List(k, namespace)

	result := make([]T, 0, len(objs))
	for _, obj := range objs {
		if typed, ok := obj.(T); ok {
			result = append(result, typed)
		}
	}

	return result
}
