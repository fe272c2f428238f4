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

// Package crd builds the CustomResourceDefinitions for the messaging
// resources, including the CEL rules that enforce ownership invariants
// directly in the API server.
package crd

import (
	"fmt"
	"strings"

	"github.com/example/messaging-operator/internal/kind"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

const (
	ownerImmutableRule    = "self == oldSelf"
	ownerImmutableMessage = "applicationServiceRef is immutable"

	aclTargetRule    = "has(self.topicRef) != has(self.consumerGroupRef)"
	aclTargetMessage = "Exactly one of topicRef or consumerGroupRef must be specified"
)

// All returns the CRDs of all kinds, parents first.
func All() []*apiextensionsv1.CustomResourceDefinition {
	crds := make([]*apiextensionsv1.CustomResourceDefinition, 0, len(kind.All()))
	for _, k := range kind.All() {
		crd, err := ForKind(k)
		if err != nil {
			// kind.All() only returns known kinds
			panic(err)
		}

		crds = append(crds, crd)
	}

	return crds
}

func ForKind(k kind.Kind) (*apiextensionsv1.CustomResourceDefinition, error) {
	spec, err := specSchema(k)
	if err != nil {
		return nil, err
	}

	plural := k.Plural()

	columns := []apiextensionsv1.CustomResourceColumnDefinition{}
	if k != kind.ApplicationService {
		columns = append(columns, apiextensionsv1.CustomResourceColumnDefinition{
			Name:     "Owner",
			Type:     "string",
			JSONPath: ".spec.applicationServiceRef",
		})
	}
	columns = append(columns, apiextensionsv1.CustomResourceColumnDefinition{
		Name:     "Age",
		Type:     "date",
		JSONPath: ".metadata.creationTimestamp",
	})

	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: apiextensionsv1.SchemeGroupVersion.String(),
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: fmt.Sprintf("%s.%s", plural, messagingv1.GroupName),
		},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: messagingv1.GroupName,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:     plural,
				Singular:   strings.ToLower(k.String()),
				Kind:       k.String(),
				ListKind:   k.String() + "List",
				Categories: []string{"messaging"},
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{{
				Name:    messagingv1.SchemeGroupVersion.Version,
				Served:  true,
				Storage: true,
				Schema: &apiextensionsv1.CustomResourceValidation{
					OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
						Type: "object",
						Properties: map[string]apiextensionsv1.JSONSchemaProps{
							"apiVersion": {Type: "string"},
							"kind":       {Type: "string"},
							"metadata":   {Type: "object"},
							"spec":       *spec,
						},
						Required: []string{"spec"},
					},
				},
				AdditionalPrinterColumns: columns,
			}},
		},
	}, nil
}

func specSchema(k kind.Kind) (*apiextensionsv1.JSONSchemaProps, error) {
	switch k {
	case kind.ApplicationService:
		return object(map[string]apiextensionsv1.JSONSchemaProps{
			"name": str(),
		}, "name"), nil

	case kind.VirtualCluster:
		return object(map[string]apiextensionsv1.JSONSchemaProps{
			"clusterId":             str(),
			"applicationServiceRef": owner(),
			"authType":              enum(messagingv1.AuthTypeMTLS, messagingv1.AuthTypeSASLSSL),
		}, "clusterId", "applicationServiceRef"), nil

	case kind.ServiceAccount:
		return object(map[string]apiextensionsv1.JSONSchemaProps{
			"name":                  str(),
			"dn":                    list(str()),
			"clusterRef":            str(),
			"applicationServiceRef": owner(),
		}, "name", "clusterRef", "applicationServiceRef"), nil

	case kind.Topic:
		name := str()
		name.Pattern = `^[a-zA-Z0-9._-]+$`
		name.MaxLength = ptr.To[int64](249)

		return object(map[string]apiextensionsv1.JSONSchemaProps{
			"serviceRef":            str(),
			"name":                  name,
			"partitions":            integer(1, 1000, 6),
			"replicationFactor":     integer(1, 5, 3),
			"config":                stringMap(),
			"applicationServiceRef": owner(),
		}, "serviceRef", "name", "applicationServiceRef"), nil

	case kind.ConsumerGroup:
		return object(map[string]apiextensionsv1.JSONSchemaProps{
			"serviceRef":            str(),
			"name":                  str(),
			"patternType":           withDefault(enum(messagingv1.PatternTypeLiteral, messagingv1.PatternTypePrefixed), `"LITERAL"`),
			"applicationServiceRef": owner(),
		}, "serviceRef", "name", "applicationServiceRef"), nil

	case kind.ACL:
		spec := object(map[string]apiextensionsv1.JSONSchemaProps{
			"serviceRef":       str(),
			"topicRef":         str(),
			"consumerGroupRef": str(),
			"operations": list(enum(
				messagingv1.ACLOperationRead,
				messagingv1.ACLOperationWrite,
				messagingv1.ACLOperationCreate,
				messagingv1.ACLOperationDelete,
				messagingv1.ACLOperationAlter,
				messagingv1.ACLOperationDescribe,
				messagingv1.ACLOperationClusterAction,
				messagingv1.ACLOperationDescribeConfigs,
				messagingv1.ACLOperationAlterConfigs,
				messagingv1.ACLOperationIdempotentWrite,
				messagingv1.ACLOperationAll,
			)),
			"host":                  withDefault(str(), `"*"`),
			"permission":            withDefault(enum(messagingv1.ACLPermissionAllow, messagingv1.ACLPermissionDeny), `"ALLOW"`),
			"applicationServiceRef": owner(),
		}, "serviceRef", "applicationServiceRef")

		spec.XValidations = apiextensionsv1.ValidationRules{{
			Rule:    aclTargetRule,
			Message: aclTargetMessage,
		}}

		return spec, nil

	default:
		return nil, fmt.Errorf("unknown resource kind %q", k)
	}
}

func object(properties map[string]apiextensionsv1.JSONSchemaProps, required ...string) *apiextensionsv1.JSONSchemaProps {
	return &apiextensionsv1.JSONSchemaProps{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func str() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{Type: "string"}
}

// owner is the schema of applicationServiceRef, which must never change.
func owner() apiextensionsv1.JSONSchemaProps {
	s := str()
	s.MinLength = ptr.To[int64](1)
	s.XValidations = apiextensionsv1.ValidationRules{{
		Rule:    ownerImmutableRule,
		Message: ownerImmutableMessage,
	}}

	return s
}

func enum[T ~string](values ...T) apiextensionsv1.JSONSchemaProps {
	s := str()
	for _, v := range values {
		s.Enum = append(s.Enum, apiextensionsv1.JSON{Raw: []byte(fmt.Sprintf("%q", v))})
	}

	return s
}

func integer(minimum, maximum float64, def int) apiextensionsv1.JSONSchemaProps {
	return withDefault(apiextensionsv1.JSONSchemaProps{
		Type:    "integer",
		Format:  "int32",
		Minimum: ptr.To(minimum),
		Maximum: ptr.To(maximum),
	}, fmt.Sprintf("%d", def))
}

func list(items apiextensionsv1.JSONSchemaProps) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:  "array",
		Items: &apiextensionsv1.JSONSchemaPropsOrArray{Schema: &items},
	}
}

func stringMap() apiextensionsv1.JSONSchemaProps {
	values := str()

	return apiextensionsv1.JSONSchemaProps{
		Type:                 "object",
		AdditionalProperties: &apiextensionsv1.JSONSchemaPropsOrBool{Allows: true, Schema: &values},
	}
}

func withDefault(s apiextensionsv1.JSONSchemaProps, raw string) apiextensionsv1.JSONSchemaProps {
	s.Default = &apiextensionsv1.JSON{Raw: []byte(raw)}
	return s
}
