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
)

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced

// ApplicationService is the root of a tenant. Every other messaging resource
// names the ApplicationService it belongs to.
type ApplicationService struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ApplicationServiceSpec `json:"spec"`
}

type ApplicationServiceSpec struct {
	// Name is the human readable name of the application service.
	Name string `json:"name"`
}

// +kubebuilder:object:root=true

// ApplicationServiceList contains a list of ApplicationServices.
type ApplicationServiceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []ApplicationService `json:"items"`
}

// +kubebuilder:validation:Enum=MTLS;SASL_SSL
type AuthType string

const (
	AuthTypeMTLS    AuthType = "MTLS"
	AuthTypeSASLSSL AuthType = "SASL_SSL"
)

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced

// VirtualCluster is a logical Kafka cluster exposed to a single application service.
type VirtualCluster struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec VirtualClusterSpec `json:"spec"`
}

type VirtualClusterSpec struct {
	ClusterID             string   `json:"clusterId"`
	ApplicationServiceRef string   `json:"applicationServiceRef"`
	AuthType              AuthType `json:"authType,omitempty"`
}

// +kubebuilder:object:root=true

// VirtualClusterList contains a list of VirtualClusters.
type VirtualClusterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []VirtualCluster `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced

// ServiceAccount is an identity inside a VirtualCluster.
type ServiceAccount struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ServiceAccountSpec `json:"spec"`
}

type ServiceAccountSpec struct {
	Name string `json:"name"`
	// DN lists the distinguished names of the client certificates that
	// authenticate as this service account.
	DN                    []string `json:"dn,omitempty"`
	ClusterRef            string   `json:"clusterRef"`
	ApplicationServiceRef string   `json:"applicationServiceRef"`
}

// +kubebuilder:object:root=true

// ServiceAccountList contains a list of ServiceAccounts.
type ServiceAccountList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []ServiceAccount `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced

// Topic is a Kafka topic reachable through a ServiceAccount.
type Topic struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec TopicSpec `json:"spec"`
}

type TopicSpec struct {
	ServiceRef string `json:"serviceRef"`

	// +kubebuilder:validation:Pattern=`^[a-zA-Z0-9._-]+$`
	// +kubebuilder:validation:MaxLength=249
	Name string `json:"name"`

	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=1000
	// +kubebuilder:default=6
	Partitions int32 `json:"partitions,omitempty"`

	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=5
	// +kubebuilder:default=3
	ReplicationFactor int32 `json:"replicationFactor,omitempty"`

	Config                map[string]string `json:"config,omitempty"`
	ApplicationServiceRef string            `json:"applicationServiceRef"`
}

// +kubebuilder:object:root=true

// TopicList contains a list of Topics.
type TopicList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []Topic `json:"items"`
}

// +kubebuilder:validation:Enum=LITERAL;PREFIXED
type PatternType string

const (
	PatternTypeLiteral  PatternType = "LITERAL"
	PatternTypePrefixed PatternType = "PREFIXED"
)

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced

// ConsumerGroup is a Kafka consumer group reachable through a ServiceAccount.
type ConsumerGroup struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ConsumerGroupSpec `json:"spec"`
}

type ConsumerGroupSpec struct {
	ServiceRef string `json:"serviceRef"`
	Name       string `json:"name"`

	// +kubebuilder:default=LITERAL
	PatternType           PatternType `json:"patternType,omitempty"`
	ApplicationServiceRef string      `json:"applicationServiceRef"`
}

// +kubebuilder:object:root=true

// ConsumerGroupList contains a list of ConsumerGroups.
type ConsumerGroupList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []ConsumerGroup `json:"items"`
}

// +kubebuilder:validation:Enum=READ;WRITE;CREATE;DELETE;ALTER;DESCRIBE;CLUSTER_ACTION;DESCRIBE_CONFIGS;ALTER_CONFIGS;IDEMPOTENT_WRITE;ALL
type ACLOperation string

const (
	ACLOperationRead            ACLOperation = "READ"
	ACLOperationWrite           ACLOperation = "WRITE"
	ACLOperationCreate          ACLOperation = "CREATE"
	ACLOperationDelete          ACLOperation = "DELETE"
	ACLOperationAlter           ACLOperation = "ALTER"
	ACLOperationDescribe        ACLOperation = "DESCRIBE"
	ACLOperationClusterAction   ACLOperation = "CLUSTER_ACTION"
	ACLOperationDescribeConfigs ACLOperation = "DESCRIBE_CONFIGS"
	ACLOperationAlterConfigs    ACLOperation = "ALTER_CONFIGS"
	ACLOperationIdempotentWrite ACLOperation = "IDEMPOTENT_WRITE"
	ACLOperationAll             ACLOperation = "ALL"
)

// +kubebuilder:validation:Enum=ALLOW;DENY
type ACLPermission string

const (
	ACLPermissionAllow ACLPermission = "ALLOW"
	ACLPermissionDeny  ACLPermission = "DENY"
)

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced
// +kubebuilder:validation:XValidation:rule="has(self.spec.topicRef) != has(self.spec.consumerGroupRef)",message="Exactly one of topicRef or consumerGroupRef must be specified"

// ACL grants a ServiceAccount access to either a Topic or a ConsumerGroup.
type ACL struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ACLSpec `json:"spec"`
}

type ACLSpec struct {
	// ServiceRef names the ServiceAccount this ACL applies to.
	ServiceRef       string `json:"serviceRef"`
	TopicRef         string `json:"topicRef,omitempty"`
	ConsumerGroupRef string `json:"consumerGroupRef,omitempty"`

	Operations []ACLOperation `json:"operations,omitempty"`

	// +kubebuilder:default="*"
	Host string `json:"host,omitempty"`

	// +kubebuilder:default=ALLOW
	Permission            ACLPermission `json:"permission,omitempty"`
	ApplicationServiceRef string        `json:"applicationServiceRef"`
}

// +kubebuilder:object:root=true

// ACLList contains a list of ACLs.
type ACLList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []ACL `json:"items"`
}

func init() {
	SchemeBuilder.Register(
		&ApplicationService{}, &ApplicationServiceList{},
		&VirtualCluster{}, &VirtualClusterList{},
		&ServiceAccount{}, &ServiceAccountList{},
		&Topic{}, &TopicList{},
		&ConsumerGroup{}, &ConsumerGroupList{},
		&ACL{}, &ACLList{},
	)
}
