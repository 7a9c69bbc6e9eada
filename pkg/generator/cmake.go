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

package generator

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/voicetuber/kiln/pkg/recipe"
)

const header = "# Generated by kiln for %s. Do not edit.\n"

func renderToolchain(in Input) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, header, in.Ref)
	b.WriteString("cmake_minimum_required(VERSION 3.15)\n\n")

	if bt := in.Settings[recipe.AxisBuildType]; bt != "" {
		setCache(&b, "CMAKE_BUILD_TYPE", quote(bt), "STRING")
	}
	if v, ok := in.Options["shared"]; ok {
		setCache(&b, "BUILD_SHARED_LIBS", onOff(v), "BOOL")
	}
	if v, ok := in.Options["fPIC"]; ok {
		setCache(&b, "CMAKE_POSITION_INDEPENDENT_CODE", onOff(v), "BOOL")
	}
	if std := in.Settings["compiler.cppstd"]; std != "" {
		level, gnu := strings.CutPrefix(std, "gnu")
		setCache(&b, "CMAKE_CXX_STANDARD", level, "STRING")
		setCache(&b, "CMAKE_CXX_STANDARD_REQUIRED", "ON", "BOOL")
		setCache(&b, "CMAKE_CXX_EXTENSIONS", onOffBool(gnu), "BOOL")
	}
	if lib := in.Settings["compiler.libcxx"]; lib != "" {
		switch lib {
		case "libstdc++":
			b.WriteString("add_compile_definitions(_GLIBCXX_USE_CXX11_ABI=0)\n")
		case "libstdc++11":
			b.WriteString("add_compile_definitions(_GLIBCXX_USE_CXX11_ABI=1)\n")
		case "libc++":
			b.WriteString("string(APPEND CMAKE_CXX_FLAGS_INIT \" -stdlib=libc++\")\n")
		}
	}

	b.WriteString("\nlist(PREPEND CMAKE_PREFIX_PATH \"${CMAKE_CURRENT_LIST_DIR}\")\n")
	b.WriteString("list(PREPEND CMAKE_MODULE_PATH \"${CMAKE_CURRENT_LIST_DIR}\")\n")
	b.WriteString("set(CMAKE_FIND_PACKAGE_PREFER_CONFIG ON)\n")

	if len(in.Variables) > 0 {
		b.WriteString("\n")
		for _, k := range sortedKeys(in.Variables) {
			fmt.Fprintf(&b, "set(%s %s)\n", k, quote(slashed(in.Variables[k])))
		}
	}
	return []byte(b.String())
}

func renderConfig(d recipe.Dependency) []byte {
	name := d.Ref.Name
	info := d.Info.WithDefaults()
	prefix := "${" + name + "_PACKAGE_FOLDER}"

	var b strings.Builder
	fmt.Fprintf(&b, header, d.Ref)
	b.WriteString("include_guard(GLOBAL)\n\n")

	for _, req := range sortedCopy(d.Requires) {
		fmt.Fprintf(&b, "include(\"${CMAKE_CURRENT_LIST_DIR}/%s\")\n", ConfigFileName(req))
	}
	if len(d.Requires) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "set(%s_FOUND TRUE)\n", name)
	fmt.Fprintf(&b, "set(%s_VERSION %s)\n", name, quote(d.Ref.Version))
	fmt.Fprintf(&b, "set(%s_PACKAGE_FOLDER %s)\n", name, quote(slashed(d.PackageDir)))
	fmt.Fprintf(&b, "set(%s_INCLUDE_DIRS %s)\n", name, quote(joinDirs(prefix, info.IncludeDirs)))
	fmt.Fprintf(&b, "set(%s_LIB_DIRS %s)\n", name, quote(joinDirs(prefix, info.LibDirs)))
	if len(info.BinDirs) > 0 {
		fmt.Fprintf(&b, "set(%s_BIN_DIRS %s)\n", name, quote(joinDirs(prefix, info.BinDirs)))
	}
	fmt.Fprintf(&b, "set(%s_LIBRARIES %s)\n", name, quote(strings.Join(info.Libs, ";")))
	fmt.Fprintf(&b, "set(%s_DEFINITIONS %s)\n", name, quote(strings.Join(info.Defines, ";")))
	if len(info.ResDirs) > 0 {
		fmt.Fprintf(&b, "set(%s_RES_DIR %s)\n", name, quote(prefix+"/"+slashed(info.ResDirs[0])))
	}
	for _, k := range sortedKeys(info.Variables) {
		fmt.Fprintf(&b, "set(%s %s)\n", k, quote(slashed(info.Variables[k])))
	}

	links := []string{"${" + name + "_LIBRARIES}"}
	for _, req := range sortedCopy(d.Requires) {
		links = append(links, req+"::"+req)
	}
	target := name + "::" + name
	fmt.Fprintf(&b, "\nif(NOT TARGET %s)\n", target)
	fmt.Fprintf(&b, "  add_library(%s INTERFACE IMPORTED)\n", target)
	fmt.Fprintf(&b, "  set_target_properties(%s PROPERTIES\n", target)
	fmt.Fprintf(&b, "    INTERFACE_INCLUDE_DIRECTORIES \"${%s_INCLUDE_DIRS}\"\n", name)
	fmt.Fprintf(&b, "    INTERFACE_LINK_DIRECTORIES \"${%s_LIB_DIRS}\"\n", name)
	fmt.Fprintf(&b, "    INTERFACE_LINK_LIBRARIES \"%s\"\n", strings.Join(links, ";"))
	fmt.Fprintf(&b, "    INTERFACE_COMPILE_DEFINITIONS \"${%s_DEFINITIONS}\")\n", name)
	b.WriteString("endif()\n")
	return []byte(b.String())
}

func setCache(b *strings.Builder, name, value, typ string) {
	fmt.Fprintf(b, "set(%s %s CACHE %s \"\" FORCE)\n", name, value, typ)
}

func onOff(v string) string {
	return onOffBool(v == "True")
}

func onOffBool(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

// slashed converts any path separator to a forward slash.
func slashed(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func joinDirs(prefix string, dirs []string) string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = path.Join(prefix, slashed(d))
	}
	return strings.Join(out, ";")
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedCopy(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}
