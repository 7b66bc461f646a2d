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

package directory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// CachingClient wraps another Client and memoizes group lookups. Group
// membership changes rarely compared to how often every request needs it, so
// a short TTL takes most of the load off the directory.
type CachingClient struct {
	inner  Client
	groups *ttlcache.Cache[string, []string]
}

// NewCachingClient decorates inner with a group-membership cache.
func NewCachingClient(inner Client, ttl time.Duration) *CachingClient {
	cache := ttlcache.New[string, []string](
		ttlcache.WithTTL[string, []string](ttl),
		ttlcache.WithDisableTouchOnHit[string, []string](),
	)
	go cache.Start()
	return &CachingClient{inner: inner, groups: cache}
}

func (c *CachingClient) Authenticate(ctx context.Context, username, password string) (string, error) {
	return c.inner.Authenticate(ctx, username, password)
}

func (c *CachingClient) Groups(ctx context.Context, dn string) ([]string, error) {
	if item := c.groups.Get(dn); item != nil {
		return item.Value(), nil
	}
	groups, err := c.inner.Groups(ctx, dn)
	if err != nil {
		return nil, err
	}
	c.groups.Set(dn, groups, ttlcache.DefaultTTL)
	return groups, nil
}

func (c *CachingClient) ModifyTimestamp(ctx context.Context, dn string) (time.Time, error) {
	return c.inner.ModifyTimestamp(ctx, dn)
}

// Stop shuts down the cache's expiration goroutine.
func (c *CachingClient) Stop() {
	c.groups.Stop()
}
