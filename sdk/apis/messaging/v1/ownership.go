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

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// OwnedResource is implemented by every messaging resource. It exposes the
// metadata the ownership rules operate on, regardless of the concrete kind.
type OwnedResource interface {
	metav1.Object
	runtime.Object

	// ApplicationServiceRef returns the name of the ApplicationService that
	// owns this resource. An ApplicationService owns itself.
	ApplicationServiceRef() string
}

var (
	_ OwnedResource = &ApplicationService{}
	_ OwnedResource = &VirtualCluster{}
	_ OwnedResource = &ServiceAccount{}
	_ OwnedResource = &Topic{}
	_ OwnedResource = &ConsumerGroup{}
	_ OwnedResource = &ACL{}
)

func (in *ApplicationService) ApplicationServiceRef() string {
	return in.Name
}

func (in *VirtualCluster) ApplicationServiceRef() string {
	return in.Spec.ApplicationServiceRef
}

func (in *ServiceAccount) ApplicationServiceRef() string {
	return in.Spec.ApplicationServiceRef
}

func (in *Topic) ApplicationServiceRef() string {
	return in.Spec.ApplicationServiceRef
}

func (in *ConsumerGroup) ApplicationServiceRef() string {
	return in.Spec.ApplicationServiceRef
}

func (in *ACL) ApplicationServiceRef() string {
	return in.Spec.ApplicationServiceRef
}
