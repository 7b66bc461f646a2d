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

// Package param provides typed accessors for every known configuration key.
// All values are backed by the process-global viper instance configured by
// the config package; handlers and components should never call viper
// directly.
package param

import (
	"time"

	"github.com/spf13/viper"
)

type StringParam struct {
	name string
}

type StringSliceParam struct {
	name string
}

type IntParam struct {
	name string
}

type BoolParam struct {
	name string
}

type DurationParam struct {
	name string
}

func (p StringParam) GetName() string {
	return p.name
}

func (p StringParam) GetString() string {
	return viper.GetString(p.name)
}

func (p StringParam) IsSet() bool {
	return viper.IsSet(p.name)
}

func (p StringSliceParam) GetName() string {
	return p.name
}

func (p StringSliceParam) GetStringSlice() []string {
	return viper.GetStringSlice(p.name)
}

func (p IntParam) GetName() string {
	return p.name
}

func (p IntParam) GetInt() int {
	return viper.GetInt(p.name)
}

func (p BoolParam) GetName() string {
	return p.name
}

func (p BoolParam) GetBool() bool {
	return viper.GetBool(p.name)
}

func (p DurationParam) GetName() string {
	return p.name
}

func (p DurationParam) GetDuration() time.Duration {
	return viper.GetDuration(p.name)
}
