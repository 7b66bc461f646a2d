/***************************************************************
 *
 * Copyright (C) 2025, LabCAS Project, California Institute of Technology
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you
 * may not use this file except in compliance with the License.  You may
 * obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 ***************************************************************/

package crawler

import (
	"net/http"

	"github.com/labcas-platform/labcas-backend/param"
)

// NewOhifAction builds the DICOM-viewer hook from the process configuration.
// Products carrying the NOOHIF key are left alone.
func NewOhifAction(client *http.Client) *ViewerAction {
	return &ViewerAction{
		Name:          "ohif",
		SubmitURL:     param.Viewer_OhifSubmitUrl.GetString(),
		ViewURLPrefix: param.Viewer_OhifViewUrl.GetString(),
		SkipFlag:      "NOOHIF",
		ReferenceKey:  "StudyInstanceUID",
		HTTP:          client,
	}
}

// NewQuipAction builds the tissue-viewer hook from the process
// configuration. Only the configured slide formats are submitted; products
// carrying the NOQUIP key are left alone.
func NewQuipAction(client *http.Client) *ViewerAction {
	return &ViewerAction{
		Name:          "quip",
		SubmitURL:     param.Viewer_QuipSubmitUrl.GetString(),
		ViewURLPrefix: param.Viewer_QuipViewUrl.GetString(),
		Extensions:    param.Viewer_QuipExtensions.GetStringSlice(),
		SkipFlag:      "NOQUIP",
		HTTP:          client,
	}
}
