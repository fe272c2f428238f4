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

// Package fixtures builds messaging resources for tests.
package fixtures

import (
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const Namespace = "default"

func meta(namespace, name string) metav1.ObjectMeta {
	return metav1.ObjectMeta{Namespace: namespace, Name: name}
}

func NewApplicationService(name string) *messagingv1.ApplicationService {
	return &messagingv1.ApplicationService{
		ObjectMeta: meta(Namespace, name),
		Spec:       messagingv1.ApplicationServiceSpec{Name: name},
	}
}

func NewVirtualCluster(name, owner string) *messagingv1.VirtualCluster {
	return &messagingv1.VirtualCluster{
		ObjectMeta: meta(Namespace, name),
		Spec: messagingv1.VirtualClusterSpec{
			ClusterID:             name + "-id",
			ApplicationServiceRef: owner,
			AuthType:              messagingv1.AuthTypeMTLS,
		},
	}
}

func NewServiceAccount(name, clusterRef, owner string) *messagingv1.ServiceAccount {
	return &messagingv1.ServiceAccount{
		ObjectMeta: meta(Namespace, name),
		Spec: messagingv1.ServiceAccountSpec{
			Name:                  name,
			DN:                    []string{"CN=" + name + ",OU=TEST,O=EXAMPLE"},
			ClusterRef:            clusterRef,
			ApplicationServiceRef: owner,
		},
	}
}

func NewTopic(name, serviceRef, owner string) *messagingv1.Topic {
	return &messagingv1.Topic{
		ObjectMeta: meta(Namespace, name),
		Spec: messagingv1.TopicSpec{
			ServiceRef:            serviceRef,
			Name:                  name,
			Partitions:            6,
			ReplicationFactor:     3,
			Config:                map[string]string{"retention.ms": "604800000"},
			ApplicationServiceRef: owner,
		},
	}
}

func NewConsumerGroup(name, serviceRef, owner string) *messagingv1.ConsumerGroup {
	return &messagingv1.ConsumerGroup{
		ObjectMeta: meta(Namespace, name),
		Spec: messagingv1.ConsumerGroupSpec{
			ServiceRef:            serviceRef,
			Name:                  name,
			PatternType:           messagingv1.PatternTypeLiteral,
			ApplicationServiceRef: owner,
		},
	}
}

// NewTopicACL returns an ACL granting read and write on a topic.
func NewTopicACL(name, serviceRef, topicRef, owner string) *messagingv1.ACL {
	return &messagingv1.ACL{
		ObjectMeta: meta(Namespace, name),
		Spec: messagingv1.ACLSpec{
			ServiceRef:            serviceRef,
			TopicRef:              topicRef,
			Operations:            []messagingv1.ACLOperation{messagingv1.ACLOperationRead, messagingv1.ACLOperationWrite},
			Host:                  "*",
			Permission:            messagingv1.ACLPermissionAllow,
			ApplicationServiceRef: owner,
		},
	}
}

func NewConsumerGroupACL(name, serviceRef, consumerGroupRef, owner string) *messagingv1.ACL {
	return &messagingv1.ACL{
		ObjectMeta: meta(Namespace, name),
		Spec: messagingv1.ACLSpec{
			ServiceRef:            serviceRef,
			ConsumerGroupRef:      consumerGroupRef,
			Operations:            []messagingv1.ACLOperation{messagingv1.ACLOperationRead},
			Host:                  "*",
			Permission:            messagingv1.ACLPermissionAllow,
			ApplicationServiceRef: owner,
		},
	}
}

// Tenant returns a consistent chain of resources owned by the given
// application service, parents first.
func Tenant(owner string) []messagingv1.OwnedResource {
	return []messagingv1.OwnedResource{
		NewApplicationService(owner),
		NewVirtualCluster(owner+"-vc", owner),
		NewServiceAccount(owner+"-sa", owner+"-vc", owner),
		NewTopic(owner+"-events", owner+"-sa", owner),
		NewConsumerGroup(owner+"-consumers", owner+"-sa", owner),
		NewTopicACL(owner+"-events-rw", owner+"-sa", owner+"-events", owner),
	}
}
