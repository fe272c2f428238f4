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

package utils

import (
	"context"
	"testing"

	"github.com/example/messaging-operator/internal/test/fixtures"

	ctrlruntimeclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// CreateTenant creates the full resource chain of an ApplicationService in
// the default namespace, parents first.
func CreateTenant(t *testing.T, ctx context.Context, client ctrlruntimeclient.Client, owner string) {
	t.Helper()

	for _, obj := range fixtures.Tenant(owner) {
		if err := client.Create(ctx, obj); err != nil {
			t.Fatalf("Failed to create %T %s: %v", obj, obj.GetName(), err)
		}
	}

	t.Logf("Created tenant %q.", owner)
}
