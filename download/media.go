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

package download

import "strings"

// MediaType guesses the content type for an archive path. DICOM is the only
// format the archive cares to label; everything else is an opaque blob.
func MediaType(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".dcm") || strings.Contains(lower, "dicom") {
		return "application/dicom"
	}
	return "application/octet-stream"
}

// PrefixMap rewrites archive path prefixes, covering archives that moved
// mount points after ingestion. Entries are "old=new" pairs; the first match
// wins.
type PrefixMap []prefixRule

type prefixRule struct {
	old string
	new string
}

// NewPrefixMap parses "old=new" entries. Malformed entries are skipped.
func NewPrefixMap(entries []string) PrefixMap {
	var rules PrefixMap
	for _, entry := range entries {
		old, updated, found := strings.Cut(entry, "=")
		if !found || old == "" {
			continue
		}
		rules = append(rules, prefixRule{old: old, new: updated})
	}
	return rules
}

// Apply rewrites path with the first matching rule, or returns it unchanged.
func (m PrefixMap) Apply(path string) string {
	for _, rule := range m {
		if strings.HasPrefix(path, rule.old) {
			return rule.new + strings.TrimPrefix(path, rule.old)
		}
	}
	return path
}
