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

package validation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/messaging-operator/internal/kind"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	ctrlruntimeclient "sigs.k8s.io/controller-runtime/pkg/client"
)

const defaultLookupTimeout = 10 * time.Second

// ClientLookup resolves references against a Kubernetes API server.
// Errors other than NotFound are logged and treated like a missing resource,
// so an unreachable API server fails validation closed.
type ClientLookup struct {
	client  ctrlruntimeclient.Reader
	log     *zap.SugaredLogger
	timeout time.Duration
}

var _ Lookup = &ClientLookup{}

func NewClientLookup(client ctrlruntimeclient.Reader, log *zap.SugaredLogger) *ClientLookup {
	return &ClientLookup{
		client:  client,
		log:     log.Named("lookup"),
		timeout: defaultLookupTimeout,
	}
}

func (l *ClientLookup) Get(k kind.Kind, namespace, name string) messagingv1.OwnedResource {
	obj, err := kind.New(k)
	if err != nil {
		l.log.Errorw("Cannot look up resource", zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	key := types.NamespacedName{Namespace: namespace, Name: name}
	if err := l.client.Get(ctx, key, obj); err != nil {
		if !apierrors.IsNotFound(err) {
			l.log.Warnw("Failed to look up resource", "kind", k, "key", key, zap.Error(err))
		}

		return nil
	}

	return obj
}
