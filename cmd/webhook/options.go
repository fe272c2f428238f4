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
	"github.com/spf13/pflag"

	"github.com/example/messaging-operator/internal/log"
	"github.com/example/messaging-operator/internal/options"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

type Options struct {
	// NB: Not actually defined here, as ctrl-runtime registers its
	// own --kubeconfig flag that is required to make its GetConfig()
	// work. It is only used when create enforcement is enabled.
	// KubeconfigFile string

	// CheckACLTargets makes create enforcement also verify the Topic or
	// ConsumerGroup an ACL points to.
	CheckACLTargets bool

	LogOptions    log.Options
	ServerOptions options.ServerRunOptions
}

func NewOptions() *Options {
	return &Options{
		LogOptions:    log.NewDefaultOptions(),
		ServerOptions: options.NewDefaultOptions(),
	}
}

func (o *Options) AddFlags(flags *pflag.FlagSet) {
	o.LogOptions.AddPFlags(flags)
	o.ServerOptions.AddPFlags(flags)

	flags.BoolVar(&o.CheckACLTargets, "check-acl-targets", o.CheckACLTargets, "when enforcing create ownership, also require the Topic or ConsumerGroup referenced by an ACL to exist")
}

func (o *Options) Validate() error {
	errs := []error{}

	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := o.ServerOptions.Validate(); err != nil {
		errs = append(errs, err)
	}

	return utilerrors.NewAggregate(errs)
}
