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

// Package crawler holds the post-ingestion hooks that register freshly
// archived products with external image viewers. The OHIF and QUIP hooks of
// the original pipeline are two configurations of the same action.
package crawler

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/labcas-platform/labcas-backend/workflow"
)

// Metadata keys written by a successful viewer submission.
const (
	KeyFileURL     = "FileUrl"
	KeyFileURLType = "FileUrlType"
)

// ViewerAction submits an archived product to an external viewer service and
// records the resulting view URL in the product metadata.
type ViewerAction struct {
	// Name tags log lines and the FileUrlType metadata value.
	Name string
	// SubmitURL receives the product reference by form POST.
	SubmitURL string
	// ViewURLPrefix is prepended to the product's reference id to form
	// the recorded view URL.
	ViewURLPrefix string
	// Extensions limits the action to matching file types; empty means all.
	Extensions []string
	// SkipFlag is a metadata key whose presence opts the product out.
	SkipFlag string
	// ReferenceKey is the metadata key carrying the viewer's id for the
	// product (e.g. a DICOM study instance UID). When empty, the product's
	// base name is used.
	ReferenceKey string

	HTTP *http.Client
}

// Perform submits productPath to the viewer. Products that are opted out or
// of an incompatible type are skipped without error, matching the crawler
// contract that a skipped action is a successful one.
func (a *ViewerAction) Perform(ctx context.Context, productPath string, md workflow.Metadata) error {
	if a.SkipFlag != "" && md.Has(a.SkipFlag) {
		log.Debugln(a.Name, "skipping opted-out product", productPath)
		return nil
	}
	if !a.matchesExtension(productPath) {
		log.Debugln(a.Name, "skipping incompatible product", productPath)
		return nil
	}

	reference := md.First(a.ReferenceKey)
	if reference == "" {
		reference = filepath.Base(productPath)
	}

	form := url.Values{}
	form.Set("product", productPath)
	form.Set("case_id", reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.SubmitURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrapf(err, "%s: failed to build the submission request", a.Name)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := a.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s: submission failed", a.Name)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return errors.Errorf("%s: submission returned status %d", a.Name, res.StatusCode)
	}

	md.Add(KeyFileURL, a.ViewURLPrefix+reference)
	md.Add(KeyFileURLType, a.Name)
	log.Infoln(a.Name, "registered product", productPath)
	return nil
}

func (a *ViewerAction) matchesExtension(productPath string) bool {
	if len(a.Extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(productPath)), ".")
	for _, allowed := range a.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
