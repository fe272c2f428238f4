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

// Package manifest reads messaging resources from YAML or JSON documents
// and applies them to a store.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/example/messaging-operator/internal/kind"
	"github.com/example/messaging-operator/internal/store"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	yamlutil "k8s.io/apimachinery/pkg/util/yaml"
)

const DefaultNamespace = "default"

// Load decodes all documents in r. Empty documents are skipped, documents
// of a foreign API group or an unknown kind are an error.
func Load(r io.Reader) ([]messagingv1.OwnedResource, error) {
	decoder := yamlutil.NewYAMLOrJSONDecoder(r, 4096)
	resources := []messagingv1.OwnedResource{}

	for doc := 1; ; doc++ {
		raw := runtime.RawExtension{}
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("document %d: %w", doc, err)
		}

		if len(raw.Raw) == 0 {
			continue
		}

		u := &unstructured.Unstructured{}
		if err := u.UnmarshalJSON(raw.Raw); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}

		obj, err := convert(u)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}

		resources = append(resources, obj)
	}

	return resources, nil
}

// LoadFiles loads all given files in order.
func LoadFiles(filenames ...string) ([]messagingv1.OwnedResource, error) {
	resources := []messagingv1.OwnedResource{}

	for _, filename := range filenames {
		f, err := os.Open(filename)
		if err != nil {
			return nil, err
		}

		loaded, err := Load(f)
		f.Close()

		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filename, err)
		}

		resources = append(resources, loaded...)
	}

	return resources, nil
}

func convert(u *unstructured.Unstructured) (messagingv1.OwnedResource, error) {
	gvk := u.GroupVersionKind()
	if gvk.Group != messagingv1.GroupName {
		return nil, fmt.Errorf("unsupported API group %q", gvk.Group)
	}

	k, err := kind.Parse(gvk.Kind)
	if err != nil {
		return nil, err
	}

	obj, err := kind.New(k)
	if err != nil {
		return nil, err
	}

	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, obj); err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", k, u.GetName(), err)
	}

	if obj.GetName() == "" {
		return nil, fmt.Errorf("%s has no name", k)
	}

	if obj.GetNamespace() == "" {
		obj.SetNamespace(DefaultNamespace)
	}

	return obj, nil
}

type Outcome struct {
	Kind      kind.Kind
	Namespace string
	Name      string
	Owner     string
	Created   bool
	Err       error
}

// Apply creates each resource, or updates it if it already exists. Resources
// are applied parents first, so a manifest does not need to be ordered.
func Apply(s *store.Store, resources []messagingv1.OwnedResource) []Outcome {
	sorted := make([]messagingv1.OwnedResource, len(resources))
	copy(sorted, resources)

	rank := map[kind.Kind]int{}
	for i, k := range kind.All() {
		rank[k] = i
	}

	kinds := make(map[messagingv1.OwnedResource]kind.Kind, len(sorted))
	for _, obj := range sorted {
		// Load only produces known kinds
		k, _ := kind.Of(obj)
		kinds[obj] = k
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return rank[kinds[sorted[i]]] < rank[kinds[sorted[j]]]
	})

	outcomes := make([]Outcome, 0, len(sorted))
	for _, obj := range sorted {
		k := kinds[obj]
		outcome := Outcome{
			Kind:      k,
			Namespace: obj.GetNamespace(),
			Name:      obj.GetName(),
			Owner:     obj.ApplicationServiceRef(),
		}

		_, err := s.Create(k, outcome.Namespace, obj)
		if store.IsAlreadyExists(err) {
			_, err = s.Update(k, outcome.Namespace, outcome.Name, obj)
		} else {
			outcome.Created = err == nil
		}

		outcome.Err = err
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// Failed returns the outcomes that carry an error.
func Failed(outcomes []Outcome) []Outcome {
	failed := []Outcome{}
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}

	return failed
}
