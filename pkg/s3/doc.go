// Copyright (c) 2025, The Kiln Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package s3 uploads published kiln packages to S3 or an S3-compatible store.
//
// A package is archived with the artifact package and written to
// <prefix>/<name>/<version>/<package id>.tar.zst next to its manifest
// (<package id>.yaml). Object metadata carries the package reference and ID.
//
//	target, _ := s3.ParseTarget("s3://kiln-packages/linux-x86_64")
//	up, err := s3.New(ctx, *target, s3.WithRegion("us-west-2"))
//	res, err := up.Upload(ctx, pkg)
//
// Credentials come from the default AWS chain unless WithStaticCredentials is
// given. WithEndpoint targets MinIO or Cloudflare R2.
package s3
