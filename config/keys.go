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

package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/labcas-platform/labcas-backend/param"
)

var (
	cookieKey     *rsa.PrivateKey
	cookieKeyErr  error
	onceCookieKey sync.Once
)

// LoadCookieSigningKey reads the RSA private key used to sign resource
// cookies. The key file is PEM-encoded, either PKCS#1 or PKCS#8. The parsed
// key is cached for the life of the process.
func LoadCookieSigningKey() (*rsa.PrivateKey, error) {
	onceCookieKey.Do(func() {
		cookieKey, cookieKeyErr = loadRsaPrivateKey(param.Cookie_SigningKeyFile.GetString())
	})
	return cookieKey, cookieKeyErr
}

func loadRsaPrivateKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return nil, errors.Errorf("Required configuration %s is not set",
			param.Cookie_SigningKeyFile.GetName())
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read the cookie signing key at %s", path)
	}
	block, _ := pem.Decode(contents)
	if block == nil {
		return nil, errors.Errorf("Cookie signing key at %s is not PEM-encoded", path)
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse the PKCS#1 key at %s", path)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse the PKCS#8 key at %s", path)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.Errorf("Key at %s is not an RSA key", path)
		}
		return rsaKey, nil
	default:
		return nil, errors.Errorf("Unsupported PEM block %q in %s", block.Type, path)
	}
}
