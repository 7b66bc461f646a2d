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

// Package access builds the ownership filter clauses appended to every index
// query, restricting results to records the caller's groups may see.
package access

import (
	"strings"

	"github.com/pkg/errors"
)

// unsafeChars are rejected in user-supplied query input after URL decoding.
const unsafeChars = "><%$"

// FilterClause returns the OwnerPrincipal restriction for a caller holding
// groups. Members of the super-owner group see everything (empty clause).
// Everyone else sees public records plus records owned by their groups.
func FilterClause(groups []string, superOwner, publicOwner string) string {
	principals := []string{quote(publicOwner)}
	for _, group := range groups {
		if group == superOwner {
			return ""
		}
		principals = append(principals, quote(group))
	}
	return "OwnerPrincipal:(" + strings.Join(principals, " OR ") + ")"
}

func quote(principal string) string {
	return `"` + principal + `"`
}

// IsSafe reports whether value is free of characters that could smuggle
// query syntax into the index backend.
func IsSafe(value string) bool {
	return !strings.ContainsAny(value, unsafeChars)
}

// SafeValues checks every value with IsSafe, returning an error naming the
// first offender.
func SafeValues(values []string) error {
	for _, value := range values {
		if !IsSafe(value) {
			return errors.Errorf("parameter value %q contains unsafe characters", value)
		}
	}
	return nil
}
