/*
Copyright 2024 The Kubermatic Kubernetes Platform contributors.

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

package version

import "fmt"

// These variables get fed by ldflags during compilation.
var (
	// gitVersion is the output of `git describe` for the commit the binary
	// was built from; it is not necessarily a static tag name.
	gitVersion string
	// gitHead is the full SHA hash of the Git commit the application was built for.
	gitHead string
)

type AppVersion struct {
	GitVersion string
	GitHead    string
}

func NewAppVersion() AppVersion {
	return AppVersion{
		GitVersion: orUnknown(gitVersion),
		GitHead:    orUnknown(gitHead),
	}
}

func NewFakeAppVersion() AppVersion {
	return AppVersion{
		GitVersion: "v0.0.0-42-test",
		GitHead:    "d9c09114135c62e207b30891899e7e1ad2493f38",
	}
}

// UserAgent is sent by the webhook's Kubernetes clients.
func (v AppVersion) UserAgent(component string) string {
	return fmt.Sprintf("messaging-operator-%s/%s", component, v.GitVersion)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}
