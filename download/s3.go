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

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"

	"github.com/labcas-platform/labcas-backend/param"
)

// S3Prefix marks archive locations that live in the object store rather than
// on the local filesystem.
const S3Prefix = "s3:"

// S3Presigner issues short-lived GET URLs for objects in the archive bucket.
type S3Presigner struct {
	svc      s3iface.S3API
	bucket   string
	lifetime time.Duration
}

// NewS3Presigner builds a presigner from the process configuration. The AWS
// credentials come from the configured shared-config profile.
func NewS3Presigner() (*S3Presigner, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		Profile:           param.S3_Profile.GetString(),
		Config:            aws.Config{Region: aws.String(param.S3_Region.GetString())},
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to establish the AWS session")
	}
	return &S3Presigner{
		svc:      s3.New(sess),
		bucket:   param.S3_Bucket.GetString(),
		lifetime: param.S3_UrlLifetime.GetDuration(),
	}, nil
}

// PresignGet returns a pre-signed URL for key, valid for the configured
// lifetime (short on purpose; the redirect is followed immediately).
func (p *S3Presigner) PresignGet(key string) (string, error) {
	req, _ := p.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	signed, err := req.Presign(p.lifetime)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to pre-sign object %s", key)
	}
	return signed, nil
}

// S3Key strips the s3://<bucket>/ prefix from an archive location, leaving
// the object key.
func (p *S3Presigner) S3Key(path string) string {
	key := strings.TrimPrefix(path, "s3://")
	return strings.TrimPrefix(key, p.bucket+"/")
}
