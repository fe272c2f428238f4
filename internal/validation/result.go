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

package validation

import (
	"errors"
	"fmt"
)

// Result is the outcome of an ownership check.
type Result struct {
	Valid   bool
	Message string
}

func Valid() Result {
	return Result{Valid: true}
}

func Invalid(format string, args ...any) Result {
	return Result{
		Valid:   false,
		Message: fmt.Sprintf(format, args...),
	}
}

// Err returns nil for valid results and an error carrying the message otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}

	return errors.New(r.Message)
}
