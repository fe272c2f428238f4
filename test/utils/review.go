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

package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	messagingv1 "github.com/example/messaging-operator/sdk/apis/messaging/v1"

	admissionv1 "k8s.io/api/admission/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
)

// SendReview posts a CREATE AdmissionReview for obj to the given webhook URL
// and returns the webhook's response.
func SendReview(t *testing.T, url string, obj messagingv1.OwnedResource) *admissionv1.AdmissionResponse {
	t.Helper()

	raw, err := json.Marshal(obj)
	require.NoError(t, err, "failed to encode object")

	request := admissionv1.AdmissionReview{
		TypeMeta: metav1.TypeMeta{
			APIVersion: admissionv1.SchemeGroupVersion.String(),
			Kind:       "AdmissionReview",
		},
		Request: &admissionv1.AdmissionRequest{
			UID:       types.UID("e2e-" + obj.GetName()),
			Kind:      metav1.GroupVersionKind(obj.GetObjectKind().GroupVersionKind()),
			Name:      obj.GetName(),
			Namespace: obj.GetNamespace(),
			Operation: admissionv1.Create,
			Object:    runtime.RawExtension{Raw: raw},
		},
	}

	body, err := json.Marshal(request)
	require.NoError(t, err, "failed to encode review")

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err, "failed to send review")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode, "webhook returned an unexpected status")

	response := &admissionv1.AdmissionReview{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(response), "failed to decode review")
	require.NotNil(t, response.Response, "review contains no response")

	return response.Response
}
