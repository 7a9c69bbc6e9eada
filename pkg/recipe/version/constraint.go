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

package version

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConstraint is returned for malformed constraint expressions.
var ErrInvalidConstraint = errors.New("invalid version constraint")

// Operator is a comparison operator in a constraint term.
type Operator string

const (
	OpEqual          Operator = "=="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
)

// Term is a single "<op><version>" comparison.
type Term struct {
	Op      Operator
	Version Version
}

// Check reports whether v satisfies the term.
func (t Term) Check(v Version) bool {
	c := v.Compare(t.Version)
	switch t.Op {
	case OpEqual:
		return c == 0
	case OpGreater:
		return c > 0
	case OpGreaterOrEqual:
		return c >= 0
	case OpLess:
		return c < 0
	case OpLessOrEqual:
		return c <= 0
	default:
		return false
	}
}

func (t Term) String() string {
	return string(t.Op) + t.Version.String()
}

// Constraint is a conjunction of terms, written comma or space separated.
type Constraint struct {
	Terms []Term
}

// ParseConstraint parses expressions such as ">=1.53.0" or ">=1.53, <3".
// A bare version means equality.
func ParseConstraint(s string) (Constraint, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return Constraint{}, fmt.Errorf("%w: empty expression", ErrInvalidConstraint)
	}

	c := Constraint{Terms: make([]Term, 0, len(fields))}
	for _, f := range fields {
		op, rest := splitOperator(f)
		v, err := ParseVersion(rest)
		if err != nil {
			return Constraint{}, fmt.Errorf("%w: %q: %w", ErrInvalidConstraint, f, err)
		}
		c.Terms = append(c.Terms, Term{Op: op, Version: v})
	}
	return c, nil
}

func splitOperator(s string) (Operator, string) {
	for _, op := range []Operator{OpGreaterOrEqual, OpLessOrEqual, OpEqual, OpGreater, OpLess} {
		if strings.HasPrefix(s, string(op)) {
			return op, s[len(op):]
		}
	}
	if strings.HasPrefix(s, "=") {
		return OpEqual, s[1:]
	}
	return OpEqual, s
}

// Check reports whether v satisfies every term.
func (c Constraint) Check(v Version) bool {
	for _, t := range c.Terms {
		if !t.Check(v) {
			return false
		}
	}
	return true
}

func (c Constraint) String() string {
	parts := make([]string, len(c.Terms))
	for i, t := range c.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
