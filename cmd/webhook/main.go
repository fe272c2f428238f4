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
	"errors"
	"flag"
	"fmt"
	golog "log"
	"net/http"
	"time"

	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/example/messaging-operator/internal/admission"
	"github.com/example/messaging-operator/internal/certificates"
	operatorlog "github.com/example/messaging-operator/internal/log"
	"github.com/example/messaging-operator/internal/metrics"
	"github.com/example/messaging-operator/internal/options"
	"github.com/example/messaging-operator/internal/validation"
	"github.com/example/messaging-operator/internal/version"
	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/klog/v2"
	ctrlruntime "sigs.k8s.io/controller-runtime"
	ctrlruntimeclient "sigs.k8s.io/controller-runtime/pkg/client"
	ctrlruntimelog "sigs.k8s.io/controller-runtime/pkg/log"
	ctrlruntimemetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	opts := NewOptions()
	opts.AddFlags(pflag.CommandLine)

	// ctrl-runtime will have added its --kubeconfig to Go's flag set
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	opts.ServerOptions.ApplyEnvironment(options.NewEnvironment())

	if err := opts.Validate(); err != nil {
		golog.Fatalf("Invalid command line: %v", err)
	}

	log := operatorlog.NewFromOptions(opts.LogOptions)
	sugar := log.Sugar()

	// set the logger used by sigs.k8s.io/controller-runtime and client-go
	logger := zapr.NewLogger(log.WithOptions(zap.AddCallerSkip(1)))
	ctrlruntimelog.SetLogger(logger)
	klog.SetLogger(logger)

	ctx := ctrlruntime.SetupSignalHandler()

	if err := run(ctx, sugar, opts); err != nil {
		sugar.Fatalw("Webhook server has encountered an error", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.SugaredLogger, opts *Options) error {
	v := version.NewAppVersion()
	serverOpts := opts.ServerOptions

	log.With(
		"version", v.GitVersion,
		"port", serverOpts.Port,
		"enforce-create", serverOpts.EnforceCreateOwnership,
	).Info("Starting messaging admission webhook")

	validator, err := setupValidator(log, opts, v)
	if err != nil {
		return fmt.Errorf("failed to setup validator: %w", err)
	}

	recorder, err := metrics.NewRecorder(ctrlruntimemetrics.Registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	handler, err := admission.NewServer(validator, log, admission.Options{
		Kinds:                  serverOpts.EffectiveKinds(admission.DefaultKinds),
		EnforceCreateOwnership: serverOpts.EnforceCreateOwnership,
		Recorder:               recorder,
	})
	if err != nil {
		return fmt.Errorf("failed to setup admission server: %w", err)
	}

	log.Infow("Serving admission webhooks", "routes", handler.Routes())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", serverOpts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	servers := []*http.Server{server}
	errs := make(chan error, 2)

	if serverOpts.TLSCertFile != "" {
		serving, err := certificates.NewServing(serverOpts.TLSCertFile, serverOpts.TLSKeyFile, log)
		if err != nil {
			return fmt.Errorf("failed to load serving certificate: %w", err)
		}

		go func() {
			if err := serving.Start(ctx); err != nil {
				log.Errorw("Certificate watcher has stopped", zap.Error(err))
			}
		}()

		server.TLSConfig = serving.TLSConfig()
		go func() { errs <- serve(server.ListenAndServeTLS("", "")) }()
	} else {
		log.Warn("No TLS certificate configured, serving plain HTTP")
		go func() { errs <- serve(server.ListenAndServe()) }()
	}

	if serverOpts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(ctrlruntimemetrics.Registry, promhttp.HandlerOpts{}))

		metricsServer := &http.Server{
			Addr:              serverOpts.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, metricsServer)

		go func() { errs <- serve(metricsServer.ListenAndServe()) }()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errs:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Warnw("Failed to shut down server", "address", s.Addr, zap.Error(err))
		}
	}

	return nil
}

func serve(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func setupValidator(log *zap.SugaredLogger, opts *Options, v version.AppVersion) (*validation.Validator, error) {
	if !opts.ServerOptions.EnforceCreateOwnership {
		// lookups only happen for CREATE requests
		return validation.NewValidator(nil), nil
	}

	restConfig, err := ctrlruntime.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	restConfig.UserAgent = v.UserAgent("webhook")

	scheme := runtime.NewScheme()
	if err := messagingv1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to register scheme %s: %w", messagingv1.SchemeGroupVersion, err)
	}

	client, err := ctrlruntimeclient.New(restConfig, ctrlruntimeclient.Options{
		Scheme: scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	validationOpts := []validation.Option{}
	if opts.CheckACLTargets {
		validationOpts = append(validationOpts, validation.WithACLTargetCheck())
	}

	log.Infow("Validating created resources against the cluster", "host", restConfig.Host)

	return validation.NewValidator(validation.NewClientLookup(client, log), validationOpts...), nil
}
