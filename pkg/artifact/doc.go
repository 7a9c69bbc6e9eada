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

// Package artifact manages the local package store.
//
// A published package lives at <store>/<name>/<version>/<package-id>/ and
// holds the installed tree (lib/, include/, licenses/, optionally res/), a
// kilnpackage.yaml manifest and a checksums.txt file.
//
// Packages are produced through a Staging directory under <store>/.staging.
// Publish writes the manifest and checksums and then renames the staging
// directory into place, so a package directory is either complete or absent.
// The store serializes writers of the same package path; distinct packages
// are staged and published concurrently.
//
//	st, err := store.Stage(ref, id)
//	if err != nil {
//	    return err
//	}
//	defer st.Abort()
//	// install into st.Dir()
//	pkg, err := st.Publish(ctx, artifact.Manifest{...})
//
// Archive writes a reproducible tarball of a package in .tar, .tar.gz,
// .tar.xz or .tar.zst form.
package artifact
