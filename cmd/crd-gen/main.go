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
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/example/messaging-operator/internal/crd"
	"github.com/example/messaging-operator/internal/kind"
	"github.com/example/messaging-operator/internal/version"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/clientcmd"
	ctrlruntimeclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"
)

var (
	kubeconfigPath string
	apply          bool
)

func main() {
	ctx := context.Background()

	pflag.StringVar(&kubeconfigPath, "kubeconfig", "", "Path to the kubeconfig file to use (defaults to $KUBECONFIG)")
	pflag.BoolVar(&apply, "apply", false, "Create or update the CRDs in the cluster instead of printing them")
	pflag.Parse()

	crds, err := selectCRDs(pflag.Args())
	if err != nil {
		log.Fatal(err)
	}

	if apply {
		if err := applyCRDs(ctx, crds); err != nil {
			log.Fatalf("Failed to apply CRDs: %v.", err)
		}

		return
	}

	for _, c := range crds {
		enc, err := yaml.Marshal(c)
		if err != nil {
			log.Fatalf("Failed to encode CRD as YAML: %v.", err)
		}

		fmt.Fprintf(os.Stdout, "---\n%s", enc)
	}
}

// selectCRDs returns the CRDs for the given kind names, or all of them.
func selectCRDs(args []string) ([]*apiextensionsv1.CustomResourceDefinition, error) {
	if len(args) == 0 {
		return crd.All(), nil
	}

	crds := []*apiextensionsv1.CustomResourceDefinition{}
	for _, arg := range args {
		k, err := kind.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("%w, please use one of %v", err, kind.All())
		}

		c, err := crd.ForKind(k)
		if err != nil {
			return nil, err
		}

		crds = append(crds, c)
	}

	return crds, nil
}

func applyCRDs(ctx context.Context, crds []*apiextensionsv1.CustomResourceDefinition) error {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	loadingRules.ExplicitPath = kubeconfigPath

	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, nil).ClientConfig()
	if err != nil {
		return fmt.Errorf("failed to load Kubernetes configuration: %w", err)
	}
	config.UserAgent = version.NewAppVersion().UserAgent("crd-gen")

	scheme := runtime.NewScheme()
	if err := apiextensionsv1.AddToScheme(scheme); err != nil {
		return fmt.Errorf("failed to register scheme %s: %w", apiextensionsv1.SchemeGroupVersion, err)
	}

	client, err := ctrlruntimeclient.New(config, ctrlruntimeclient.Options{Scheme: scheme})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	for _, c := range crds {
		existing := &apiextensionsv1.CustomResourceDefinition{}
		err := client.Get(ctx, ctrlruntimeclient.ObjectKeyFromObject(c), existing)

		switch {
		case apierrors.IsNotFound(err):
			if err := client.Create(ctx, c); err != nil {
				return fmt.Errorf("failed to create %s: %w", c.Name, err)
			}
			log.Printf("Created %s.", c.Name)

		case err != nil:
			return fmt.Errorf("failed to get %s: %w", c.Name, err)

		default:
			c.ResourceVersion = existing.ResourceVersion
			if err := client.Update(ctx, c); err != nil {
				return fmt.Errorf("failed to update %s: %w", c.Name, err)
			}
			log.Printf("Updated %s.", c.Name)
		}
	}

	return nil
}
