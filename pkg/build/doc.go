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

// Package build prepares a node's sources and drives the native build tool.
//
// External processes run through a Runner. ExecRunner places every child in
// its own process group and kills the whole group when the context is
// canceled, so a canceled build never leaves compilers running.
//
// Sources are exported from the recipe's source root with ExportSources and
// patched with ApplyPatches. Patching is all-or-nothing: patches are applied
// to a sibling copy that replaces the tree only when every patch succeeded.
//
// CMake implements recipe.Toolchain on top of a Runner.
package build
