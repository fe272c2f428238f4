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

package main

import (
	"testing"

	"github.com/example/messaging-operator/internal/kind"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
)

func TestSelectCRDs(t *testing.T) {
	all, err := selectCRDs(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(all) != len(kind.All()) {
		t.Fatalf("Expected all %d CRDs, got %d.", len(kind.All()), len(all))
	}

	selected, err := selectCRDs([]string{"Topic", "ACL"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(selected) != 2 || selected[0].Spec.Names.Kind != "Topic" || selected[1].Spec.Names.Kind != "ACL" {
		t.Fatalf("Unexpected selection: %v", names(selected))
	}

	if _, err := selectCRDs([]string{"topic"}); err == nil {
		t.Fatal("Expected kind names to be case-sensitive.")
	}
}

func names(crds []*apiextensionsv1.CustomResourceDefinition) []string {
	result := []string{}
	for _, c := range crds {
		result = append(result, c.Name)
	}

	return result
}
