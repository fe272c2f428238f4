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

package options

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/messaging-operator/internal/kind"

	"k8s.io/apimachinery/pkg/util/sets"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Environment variables that override the matching flags when set.
const (
	EnvPort        = "WEBHOOK_PORT"
	EnvTLSCertFile = "TLS_CERT_PATH"
	EnvTLSKeyFile  = "TLS_KEY_PATH"
)

type ServerRunOptions struct {
	Port        int
	TLSCertFile string
	TLSKeyFile  string
	MetricsAddr string

	// EnforceCreateOwnership validates CREATE requests against the
	// cluster state; requires a kubeconfig.
	EnforceCreateOwnership bool

	EnabledKinds  sets.Set[string]
	DisabledKinds sets.Set[string]
}

func NewDefaultOptions() ServerRunOptions {
	return ServerRunOptions{
		Port:        8443,
		MetricsAddr: "127.0.0.1:8085",

		EnabledKinds:  sets.New[string](),
		DisabledKinds: sets.New[string](),
	}
}

func (opts *ServerRunOptions) AddPFlags(flags *pflag.FlagSet) {
	flags.IntVar(&opts.Port, "port", opts.Port, fmt.Sprintf("The port the webhook server listens on (env: %s).", EnvPort))
	flags.StringVar(&opts.TLSCertFile, "tls-cert-file", opts.TLSCertFile, fmt.Sprintf("PEM encoded serving certificate; serves plain HTTP if empty (env: %s).", EnvTLSCertFile))
	flags.StringVar(&opts.TLSKeyFile, "tls-key-file", opts.TLSKeyFile, fmt.Sprintf("PEM encoded private key of the serving certificate (env: %s).", EnvTLSKeyFile))
	flags.StringVar(&opts.MetricsAddr, "metrics-listen-address", opts.MetricsAddr, "The address on which /metrics is served, empty to disable.")
	flags.BoolVar(&opts.EnforceCreateOwnership, "enforce-create-ownership", opts.EnforceCreateOwnership, "Validate the ownership chain of created resources against the cluster.")

	flags.Var(SetFlag(&opts.EnabledKinds), "enable-kinds", "Comma-separated list of kinds to serve webhooks for (cannot be combined with --disable-kinds).")
	flags.Var(SetFlag(&opts.DisabledKinds), "disable-kinds", "Comma-separated list of kinds to not serve webhooks for (cannot be combined with --enable-kinds).")
}

// ApplyEnvironment overrides options with the environment variables known to v.
func (opts *ServerRunOptions) ApplyEnvironment(v *viper.Viper) {
	if v.IsSet(EnvPort) {
		opts.Port = v.GetInt(EnvPort)
	}

	if v.IsSet(EnvTLSCertFile) {
		opts.TLSCertFile = v.GetString(EnvTLSCertFile)
	}

	if v.IsSet(EnvTLSKeyFile) {
		opts.TLSKeyFile = v.GetString(EnvTLSKeyFile)
	}
}

// NewEnvironment returns a viper instance bound to the supported environment variables.
func NewEnvironment() *viper.Viper {
	v := viper.New()
	for _, env := range []string{EnvPort, EnvTLSCertFile, EnvTLSKeyFile} {
		// BindEnv only fails without arguments
		_ = v.BindEnv(env)
	}

	return v
}

func (opts *ServerRunOptions) Validate() error {
	errs := []error{}

	if opts.Port <= 0 || opts.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", opts.Port))
	}

	if (opts.TLSCertFile == "") != (opts.TLSKeyFile == "") {
		errs = append(errs, errors.New("--tls-cert-file and --tls-key-file must be given together"))
	}

	if opts.EnabledKinds.Len() > 0 && opts.DisabledKinds.Len() > 0 {
		errs = append(errs, errors.New("--enable-kinds and --disable-kinds are mutually exclusive"))
	}

	for _, name := range sets.List(opts.EnabledKinds.Union(opts.DisabledKinds)) {
		if _, err := kind.Parse(name); err != nil {
			errs = append(errs, err)
		}
	}

	return utilerrors.NewAggregate(errs)
}

// EffectiveKinds returns the kinds to serve, in registry order.
func (opts *ServerRunOptions) EffectiveKinds(defaults []kind.Kind) []kind.Kind {
	all := sets.New[string]()
	for _, k := range defaults {
		all.Insert(k.String())
	}

	effective := all
	switch {
	case opts.EnabledKinds.Len() > 0:
		effective = opts.EnabledKinds
	case opts.DisabledKinds.Len() > 0:
		effective = all.Difference(opts.DisabledKinds)
	}

	result := []kind.Kind{}
	for _, k := range kind.All() {
		if effective.Has(k.String()) {
			result = append(result, k)
		}
	}

	return result
}

type setFlag struct {
	set *sets.Set[string]
}

// SetFlag exposes a string set as a comma-separated flag.
func SetFlag(set *sets.Set[string]) pflag.Value {
	return &setFlag{set: set}
}

func (f *setFlag) Type() string {
	return "strings"
}

func (f *setFlag) String() string {
	if f.set == nil || *f.set == nil {
		return ""
	}

	return strings.Join(sets.List(*f.set), ",")
}

func (f *setFlag) Set(value string) error {
	if *f.set == nil {
		*f.set = sets.New[string]()
	}

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			f.set.Insert(item)
		}
	}

	return nil
}
