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

package storage

import (
	"context"
	"sync"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/schema"
)

// MemoryStore is the in-memory Store implementation. Rows are grouped per
// (tenant, topic) and deep-copied on the way in and out. One mutex guards
// each topic's rows, which also provides the row lock for merges.
type MemoryStore struct {
	mu     sync.Mutex
	topics map[string]*topicRows
}

type topicRows struct {
	mu   sync.Mutex
	rows []Row
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{topics: make(map[string]*topicRows)}
}

func (s *MemoryStore) bucket(topic *schema.Topic) *topicRows {
	key := topic.TenantID + "/" + topic.TopicID
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.topics[key]
	if !ok {
		b = &topicRows{}
		s.topics[key] = b
	}
	return b
}

// Seed inserts rows without copying ceremony, for test setup.
func (s *MemoryStore) Seed(topic *schema.Topic, rows ...Row) {
	b := s.bucket(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, row := range rows {
		b.rows = append(b.rows, CopyRow(row))
	}
}

// FindOne returns the single matching row.
func (s *MemoryStore) FindOne(ctx context.Context, topic *schema.Topic, by Predicate) (Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b := s.bucket(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	matches, err := b.match(by)
	if err != nil {
		return nil, false, err
	}
	switch len(matches) {
	case 0:
		return nil, false, nil
	case 1:
		return CopyRow(b.rows[matches[0]]), true, nil
	default:
		return nil, false, kerrors.RowIntegrity("find one", topic.Code, len(matches))
	}
}

// FindMany returns every matching row.
func (s *MemoryStore) FindMany(ctx context.Context, topic *schema.Topic, by Predicate) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.bucket(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	matches, err := b.match(by)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(matches))
	for _, i := range matches {
		rows = append(rows, CopyRow(b.rows[i]))
	}
	return rows, nil
}

// Exists reports whether any row matches.
func (s *MemoryStore) Exists(ctx context.Context, topic *schema.Topic, by Predicate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b := s.bucket(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, row := range b.rows {
		ok, err := by(CopyRow(row))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Insert appends a new row.
func (s *MemoryStore) Insert(ctx context.Context, topic *schema.Topic, row Row) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.bucket(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := CopyRow(row)
	b.rows = append(b.rows, kept)
	return CopyRow(kept), nil
}

// InsertOrMerge merges onto the matching row or inserts a fresh one.
func (s *MemoryStore) InsertOrMerge(ctx context.Context, topic *schema.Topic, by Predicate, merge Merge) (Row, Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	b := s.bucket(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	matches, err := b.match(by)
	if err != nil {
		return nil, nil, err
	}
	if len(matches) > 1 {
		return nil, nil, kerrors.RowIntegrity("merge", topic.Code, len(matches))
	}
	if len(matches) == 0 {
		merged, err := merge(nil)
		if err != nil {
			return nil, nil, err
		}
		kept := CopyRow(merged)
		b.rows = append(b.rows, kept)
		return nil, CopyRow(kept), nil
	}
	i := matches[0]
	prev := CopyRow(b.rows[i])
	merged, err := merge(CopyRow(prev))
	if err != nil {
		return nil, nil, err
	}
	b.rows[i] = CopyRow(merged)
	return prev, CopyRow(merged), nil
}

// Merge merges onto the single matching row.
func (s *MemoryStore) Merge(ctx context.Context, topic *schema.Topic, by Predicate, merge Merge) (Row, Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	b := s.bucket(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	matches, err := b.match(by)
	if err != nil {
		return nil, nil, err
	}
	if len(matches) == 0 {
		return nil, nil, kerrors.RowIntegrity("merge", topic.Code, 0)
	}
	if len(matches) > 1 {
		return nil, nil, kerrors.RowIntegrity("merge", topic.Code, len(matches))
	}
	i := matches[0]
	prev := CopyRow(b.rows[i])
	merged, err := merge(CopyRow(prev))
	if err != nil {
		return nil, nil, err
	}
	b.rows[i] = CopyRow(merged)
	return prev, CopyRow(merged), nil
}

// DeleteOne removes the single matching row.
func (s *MemoryStore) DeleteOne(ctx context.Context, topic *schema.Topic, by Predicate) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.bucket(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	matches, err := b.match(by)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, kerrors.RowIntegrity("delete one", topic.Code, 0)
	case 1:
		i := matches[0]
		deleted := b.rows[i]
		b.rows = append(b.rows[:i], b.rows[i+1:]...)
		return CopyRow(deleted), nil
	default:
		return nil, kerrors.RowIntegrity("delete one", topic.Code, len(matches))
	}
}

// DeleteMany removes all matching rows; zero matches is not an error.
func (s *MemoryStore) DeleteMany(ctx context.Context, topic *schema.Topic, by Predicate) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := s.bucket(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	matches, err := b.match(by)
	if err != nil {
		return nil, err
	}
	deleted := make([]Row, 0, len(matches))
	kept := b.rows[:0]
	matchSet := make(map[int]bool, len(matches))
	for _, i := range matches {
		matchSet[i] = true
	}
	for i, row := range b.rows {
		if matchSet[i] {
			deleted = append(deleted, CopyRow(row))
		} else {
			kept = append(kept, row)
		}
	}
	b.rows = kept
	return deleted, nil
}

// match returns the indexes of rows accepted by the predicate. Callers
// hold the bucket lock.
func (b *topicRows) match(by Predicate) ([]int, error) {
	var matches []int
	for i, row := range b.rows {
		ok, err := by(CopyRow(row))
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, i)
		}
	}
	return matches, nil
}
