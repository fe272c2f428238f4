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

package log

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format is the log output format.
type Format string

const (
	FormatJSON    Format = "JSON"
	FormatConsole Format = "Console"
)

var AvailableFormats = []Format{FormatJSON, FormatConsole}

func (f *Format) Type() string {
	return "string"
}

func (f *Format) String() string {
	return string(*f)
}

func (f *Format) Set(s string) error {
	for _, format := range AvailableFormats {
		if strings.EqualFold(s, string(format)) {
			*f = format
			return nil
		}
	}

	return fmt.Errorf("invalid format %q, must be one of %v", s, AvailableFormats)
}

// Options holds the logging flags shared by all binaries.
type Options struct {
	// Debug enables more verbose logging.
	Debug bool
	// Format is the output format of the logs.
	Format Format
}

func NewDefaultOptions() Options {
	return Options{
		Debug:  false,
		Format: FormatJSON,
	}
}

func (o *Options) AddPFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Debug, "log-debug", o.Debug, "Enables more verbose logging")
	fs.Var(&o.Format, "log-format", fmt.Sprintf("Log format, one of %v", AvailableFormats))
}

func (o *Options) Validate() error {
	for _, format := range AvailableFormats {
		if o.Format == format {
			return nil
		}
	}

	return fmt.Errorf("invalid log format %q, must be one of %v", o.Format, AvailableFormats)
}

// New returns a new zap logger.
func New(debug bool, format Format) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level.SetLevel(zap.DebugLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if format == FormatJSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	opts := []zap.Option{zap.AddCaller()}
	if debug {
		opts = append(opts, zap.AddStacktrace(zap.ErrorLevel))
	}

	return zap.New(zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level), opts...)
}

func NewFromOptions(o Options) *zap.Logger {
	return New(o.Debug, o.Format)
}

// NewDefault creates a new logger with default settings, for use before the
// command line has been parsed.
func NewDefault() *zap.Logger {
	return NewFromOptions(NewDefaultOptions())
}
