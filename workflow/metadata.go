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

// Package workflow implements the ingestion-side task that prepares a
// dataset upload: identifier derivation, version assignment, archive path
// construction, and publication of the dataset record to the index.
package workflow

// Standard metadata keys flowing through the ingestion workflow.
const (
	KeyCollectionName = "CollectionName"
	KeyCollectionID   = "CollectionId"
	KeyDatasetName    = "DatasetName"
	KeyDatasetID      = "DatasetId"
	KeyDatasetVersion = "DatasetVersion"
	KeyProductType    = "ProductType"
	KeyFilePath       = "FilePath"
)

// Metadata is multi-valued workflow metadata, keyed by field name.
type Metadata map[string][]string

// First returns the first value for key, or "".
func (m Metadata) First(key string) string {
	if values := m[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Replace sets key to the single value, discarding previous values.
func (m Metadata) Replace(key, value string) {
	m[key] = []string{value}
}

// Add appends a value to key.
func (m Metadata) Add(key, value string) {
	m[key] = append(m[key], value)
}

// Has reports whether key carries any value.
func (m Metadata) Has(key string) bool {
	return len(m[key]) > 0
}
