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
	"fmt"
	"io"
	golog "log"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/example/messaging-operator/internal/events"
	operatorlog "github.com/example/messaging-operator/internal/log"
	"github.com/example/messaging-operator/internal/manifest"
	"github.com/example/messaging-operator/internal/metrics"
	"github.com/example/messaging-operator/internal/store"
	"github.com/example/messaging-operator/internal/validation"
	"github.com/example/messaging-operator/internal/version"
)

type Options struct {
	EventTemplate   string
	Quiet           bool
	PrintMetrics    bool
	CheckACLTargets bool

	LogOptions operatorlog.Options
}

func (o *Options) AddFlags(flags *pflag.FlagSet) {
	o.LogOptions.AddPFlags(flags)

	flags.StringVar(&o.EventTemplate, "event-template", events.DefaultTemplate, "Go template used to print reconciliation events (sprig functions are available)")
	flags.BoolVarP(&o.Quiet, "quiet", "q", o.Quiet, "do not print reconciliation events")
	flags.BoolVar(&o.PrintMetrics, "print-metrics", o.PrintMetrics, "print the store mutation metrics in Prometheus text format after the summary")
	flags.BoolVar(&o.CheckACLTargets, "check-acl-targets", o.CheckACLTargets, "require the Topic or ConsumerGroup referenced by an ACL to exist and share its owner")
}

func main() {
	opts := &Options{LogOptions: operatorlog.NewDefaultOptions()}
	opts.AddFlags(pflag.CommandLine)
	pflag.Parse()

	if err := opts.LogOptions.Validate(); err != nil {
		golog.Fatalf("Invalid command line: %v", err)
	}

	if pflag.NArg() == 0 {
		golog.Fatal("No manifests given. Please specify one or more YAML files to check.")
	}

	log := operatorlog.NewFromOptions(opts.LogOptions).Sugar()

	failed, err := run(os.Stdout, log, opts, pflag.Args())
	if err != nil {
		log.Fatalw("Ownership check has encountered an error", zap.Error(err))
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// run applies the manifests to an empty store and reports every rejected
// resource. It returns the number of rejections.
func run(out io.Writer, log *zap.SugaredLogger, opts *Options, filenames []string) (int, error) {
	log.Debugw("Checking manifests", "version", version.NewAppVersion().GitVersion, "files", filenames)

	resources, err := manifest.LoadFiles(filenames...)
	if err != nil {
		return 0, err
	}

	validationOpts := []validation.Option{}
	if opts.CheckACLTargets {
		validationOpts = append(validationOpts, validation.WithACLTargetCheck())
	}

	s := store.New(log, store.WithEventBus(events.NewBus(log)), store.WithValidationOptions(validationOpts...))

	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return 0, err
	}
	s.AddListener(recorder.ObserveEvent)

	if !opts.Quiet {
		listener, err := events.NewTemplateListener(out, opts.EventTemplate)
		if err != nil {
			return 0, err
		}

		handle := s.AddListener(func(e events.Event) {
			if e.Phase == events.PhaseAfter {
				listener(e)
			}
		})
		defer s.Events().RemoveListener(handle)
	}

	outcomes := manifest.Apply(s, resources)
	failed := manifest.Failed(outcomes)

	fmt.Fprintln(out)
	printTable(out, outcomes)
	fmt.Fprintf(out, "\n%d resources checked, %d rejected.\n", len(outcomes), len(failed))

	if opts.PrintMetrics {
		fmt.Fprintln(out)
		if err := printMetrics(out, registry); err != nil {
			return 0, fmt.Errorf("failed to print metrics: %w", err)
		}
	}

	return len(failed), nil
}

func printMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return err
		}
	}

	return nil
}

func printTable(w io.Writer, outcomes []manifest.Outcome) {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		status := "ok"
		if o.Err != nil {
			status = o.Err.Error()
		}

		rows = append(rows, []string{o.Kind.String(), o.Namespace, o.Name, o.Owner, status})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"kind", "namespace", "name", "owner", "status"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
