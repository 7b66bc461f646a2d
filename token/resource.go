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

package token

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
)

// ResourceSigner produces the detached signatures carried by resource
// cookies. Signatures are deterministic for a given key and resource id, so
// verification is a signature check against the presented id rather than a
// lookup. The signed payload carries no expiry; the cookie's max-age is the
// only time bound.
type ResourceSigner struct {
	key *rsa.PrivateKey
}

// NewResourceSigner wraps an RSA private key for cookie signing.
func NewResourceSigner(key *rsa.PrivateKey) *ResourceSigner {
	return &ResourceSigner{key: key}
}

// Sign returns the base64-encoded RSA PKCS#1 v1.5 signature over the SHA-256
// digest of resourceID.
func (s *ResourceSigner) Sign(resourceID string) (string, error) {
	digest := sha256.Sum256([]byte(resourceID))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether signature is a valid signature over resourceID.
// Malformed input and a wrong signature are indistinguishable.
func (s *ResourceSigner) Verify(resourceID, signature string) bool {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(resourceID))
	return rsa.VerifyPKCS1v15(&s.key.PublicKey, crypto.SHA256, digest[:], sig) == nil
}
