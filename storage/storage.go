/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package storage defines the topic-row storage seam. The kernel never
// dictates the backing store: predicates are compiled in-memory joint
// evaluations that an implementation may translate to native queries. The
// memory store in this package backs tests and embedded use.
package storage

import (
	"context"

	"github.com/rulego/topicflow/schema"
)

// Row is one topic record as raw wire values.
type Row = map[string]interface{}

// Predicate tests one candidate row. Implementations may translate it to a
// native query; the in-memory form simply applies it per row.
type Predicate func(row Row) (bool, error)

// Merge produces the merged row from the previous one under the row lock.
// prev is nil when no row matched.
type Merge func(prev Row) (Row, error)

// Store is the per-topic storage seam called by the execution runtime.
// Single-row operations (FindOne, DeleteOne) fail with a row-integrity
// error when more than one row matches; bulk operations never error on
// zero matches.
type Store interface {
	// FindOne returns the single matching row, or found=false when none
	// matches.
	FindOne(ctx context.Context, topic *schema.Topic, by Predicate) (row Row, found bool, err error)
	// FindMany returns all matching rows in insertion order.
	FindMany(ctx context.Context, topic *schema.Topic, by Predicate) ([]Row, error)
	// Exists reports whether any row matches.
	Exists(ctx context.Context, topic *schema.Topic, by Predicate) (bool, error)
	// Insert appends a new row and returns it.
	Insert(ctx context.Context, topic *schema.Topic, row Row) (Row, error)
	// InsertOrMerge merges onto the single row matching by, or inserts
	// when none matches. merge runs under the row lock; prev is nil on
	// plain insert.
	InsertOrMerge(ctx context.Context, topic *schema.Topic, by Predicate, merge Merge) (prev Row, merged Row, err error)
	// Merge merges onto the single row matching by; it is an error when no
	// row matches.
	Merge(ctx context.Context, topic *schema.Topic, by Predicate, merge Merge) (prev Row, merged Row, err error)
	// DeleteOne removes the single matching row and returns it.
	DeleteOne(ctx context.Context, topic *schema.Topic, by Predicate) (Row, error)
	// DeleteMany removes all matching rows and returns them.
	DeleteMany(ctx context.Context, topic *schema.Topic, by Predicate) ([]Row, error)
}

// CopyRow deep-copies a row so callers never share mutable state with the
// store.
func CopyRow(row Row) Row {
	if row == nil {
		return nil
	}
	return copyValue(row).(map[string]interface{})
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, inner := range x {
			m[k] = copyValue(inner)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(x))
		for i, inner := range x {
			s[i] = copyValue(inner)
		}
		return s
	default:
		return x
	}
}
