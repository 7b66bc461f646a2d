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

package data_access

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	downloadsStreamed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labcas_downloads_streamed_total",
		Help: "The total number of files streamed from the local archive",
	})
	downloadsRedirected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labcas_downloads_redirected_total",
		Help: "The total number of downloads redirected to pre-signed object-store URLs",
	})
	authFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labcas_auth_failures_total",
		Help: "The total number of rejected authentication attempts",
	})
	zipsInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labcas_zips_initiated_total",
		Help: "The total number of zip jobs handed to the zipping service",
	})
)
