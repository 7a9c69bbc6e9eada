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

package recipefile

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// condition is a compiled "when" expression.
type condition struct {
	expr string
	prg  cel.Program
}

func newConditionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("settings", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("options", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("name", cel.StringType),
		cel.Variable("version", cel.StringType),
	)
}

// compileCondition returns nil for an empty expression.
func compileCondition(env *cel.Env, expr string) (*condition, error) {
	if expr == "" {
		return nil, nil
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("condition %q returns %s, want bool", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", expr, err)
	}
	return &condition{expr: expr, prg: prg}, nil
}

// conditionInput is the activation of a condition.
type conditionInput struct {
	name     string
	version  string
	settings map[string]string
	options  map[string]string
}

// holds evaluates c; a nil condition always holds.
func (c *condition) holds(in conditionInput) (bool, error) {
	if c == nil {
		return true, nil
	}
	out, _, err := c.prg.Eval(map[string]any{
		"settings": in.settings,
		"options":  in.options,
		"name":     in.name,
		"version":  in.version,
	})
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", c.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool", c.expr)
	}
	return b, nil
}
