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

// Package recipefile loads declarative recipes and build profiles.
//
// A recipe directory holds a recipe.yaml or a recipe.hcl next to the sources
// it exports. Both formats decode into a Document, which is compiled into a
// recipe.Definition:
//
//	name: pocketsphinx
//	version: 5.0.1
//	packageType: library
//	settings: [os, arch, compiler, build_type]
//	options:
//	  shared: [True, False]
//	  fPIC: [True, False]
//	defaultOptions:
//	  shared: "False"
//	  fPIC: "True"
//	configure:
//	  - when: options.shared == "True"
//	    removeOptions: [fPIC]
//	  - removeSettings: [compiler.libcxx, compiler.cppstd]
//	packageInfo:
//	  libs: [pocketsphinx]
//
// # Conditions
//
// Requirements and configure rules may carry a "when" condition. Conditions
// are CEL expressions over the node's settings and options, both maps of
// string to string, and its name and version:
//
//	requires:
//	  - ref: libuv/1.45.0
//	    when: settings.os != "Emscripten"
//
// Conditions are compiled when the recipe is loaded; a condition that does
// not compile or does not return bool rejects the recipe.
//
// # Variables
//
// Generator variables and CMake definitions are Go templates with the
// functions dep, option and setting:
//
//	variables:
//	  imgui_RES_DIR: '{{ dep "imgui" }}/res'
//	definitions:
//	  POCKETSPHINX_SHARED: '{{ if eq (option "shared") "True" }}ON{{ else }}OFF{{ end }}'
//
// dep returns the package folder of a dependency with forward slashes.
//
// # Catalogs and profiles
//
// LoadCatalog registers every recipe found below a directory. LoadProfile
// reads a "kind: Profile" document carrying settings, option overrides,
// build parallelism and the store path.
package recipefile
