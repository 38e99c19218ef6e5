// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package query assembles the optional WHERE clause of list queries.

Callers add conditions written with '?' markers; the builder renumbers them
into PostgreSQL positional placeholders ($1, $2, ...) and collects the
arguments in the same order.
*/
package query

import (
	"strconv"
	"strings"
)

// Conditions accumulates AND-ed predicates and their arguments.
type Conditions struct {
	clauses []string
	args    []any
}

// Add appends a predicate. Each '?' in clause consumes one value from args.
func (conditions *Conditions) Add(clause string, args ...any) *Conditions {
	var builder strings.Builder
	next := 0

	for _, r := range clause {
		if r == '?' && next < len(args) {
			conditions.args = append(conditions.args, args[next])
			next++
			builder.WriteString("$" + strconv.Itoa(len(conditions.args)))
			continue
		}
		builder.WriteRune(r)
	}

	conditions.clauses = append(conditions.clauses, "("+builder.String()+")")
	return conditions
}

// Where renders " WHERE a AND b", or an empty string when nothing was added.
func (conditions *Conditions) Where() string {
	if len(conditions.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions.clauses, " AND ")
}

// Args returns the collected arguments.
func (conditions *Conditions) Args() []any {
	return conditions.args
}

// Next returns the placeholder for an argument appended after the conditions,
// such as LIMIT or OFFSET.
func (conditions *Conditions) Next(value any) string {
	conditions.args = append(conditions.args, value)
	return "$" + strconv.Itoa(len(conditions.args))
}

// StringSlice parses a single comma-separated query string
// into a trimmed slice of strings.
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}
	var res []string
	for _, v := range strings.Split(val, ",") {
		clean := strings.TrimSpace(v)
		if clean != "" {
			res = append(res, clean)
		}
	}
	return res
}
