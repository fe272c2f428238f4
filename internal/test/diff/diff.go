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

package diff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"k8s.io/apimachinery/pkg/api/equality"
	"sigs.k8s.io/yaml"
)

// StringDiff returns a unified diff between the two strings.
func StringDiff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	})
	if err != nil {
		return fmt.Sprintf("<failed to diff: %v>", err)
	}

	return diff
}

// ObjectDiff renders both objects as YAML and returns a unified diff.
func ObjectDiff(expected, actual any) string {
	return StringDiff(toYAML(expected), toYAML(actual))
}

func SemanticallyEqual(expected, actual any) bool {
	return equality.Semantic.DeepEqual(expected, actual)
}

func toYAML(obj any) string {
	encoded, err := yaml.Marshal(obj)
	if err != nil {
		return fmt.Sprintf("<failed to encode %T: %v>", obj, err)
	}

	return string(encoded)
}
