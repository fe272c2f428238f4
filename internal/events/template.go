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

package events

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// DefaultTemplate renders events similar to Event.String().
const DefaultTemplate = `{{ .Timestamp.Format "15:04:05.000" }} {{ .Phase | printf "%-6s" }} {{ .Operation }} {{ .ResourceReference }}` +
	`{{ with .ApplicationService }} (owner: {{ . }}){{ end }}` +
	`{{ with .Result }} - {{ . }}{{ end }}` +
	`{{ with .ResourceVersion }} [v{{ . }}]{{ end }}` +
	`{{ with .Message }}: {{ . }}{{ end }}`

// NewTemplateListener returns a listener that renders every event using the
// given Go template (with the sprig function library available) and writes
// one line per event to w.
func NewTemplateListener(w io.Writer, tpl string) (Listener, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}

	t, err := template.New("event").Funcs(sprig.TxtFuncMap()).Parse(tpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event template: %w", err)
	}

	var lock sync.Mutex

	return func(event Event) {
		var buf bytes.Buffer
		if err := t.Execute(&buf, event); err != nil {
			panic(fmt.Sprintf("failed to render event: %v", err))
		}

		line := strings.TrimRight(buf.String(), "\n") + "\n"

		lock.Lock()
		defer lock.Unlock()

		if _, err := io.WriteString(w, line); err != nil {
			panic(fmt.Sprintf("failed to write event: %v", err))
		}
	}, nil
}
