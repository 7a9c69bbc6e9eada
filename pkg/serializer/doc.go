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

// Package serializer reads and writes kiln documents as JSON, YAML or a
// flattened table.
//
//	w := serializer.NewWriter(serializer.FormatYAML, os.Stdout)
//	defer w.Close()
//	if err := w.Serialize(ctx, view); err != nil {
//		return err
//	}
//
// Profiles and other inputs are read from local paths or http(s) URLs:
//
//	p, err := serializer.FromFile[Profile](ctx, "profiles/linux-release.yaml")
//
// RespondJSON writes buffered JSON responses for the HTTP API.
package serializer
