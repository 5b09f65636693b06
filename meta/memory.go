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

package meta

import (
	"context"
	"sync"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/model"
)

// InMemoryService holds topic, pipeline and key-store definitions in
// process memory. It backs embedded engines and tests.
type InMemoryService struct {
	mu        sync.RWMutex
	topics    map[string][]*model.Topic
	pipelines map[string][]*model.Pipeline
	keys      map[string]map[string]*model.KeyStoreParams
}

// NewInMemoryService creates an empty definition store.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		topics:    map[string][]*model.Topic{},
		pipelines: map[string][]*model.Pipeline{},
		keys:      map[string]map[string]*model.KeyStoreParams{},
	}
}

// RegisterTopic adds or replaces a topic definition.
func (s *InMemoryService) RegisterTopic(topic *model.Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.topics[topic.TenantID]
	for i, existing := range list {
		if existing.TopicID == topic.TopicID {
			list[i] = topic
			return
		}
	}
	s.topics[topic.TenantID] = append(list, topic)
}

// RegisterPipeline adds or replaces a pipeline definition.
func (s *InMemoryService) RegisterPipeline(pipeline *model.Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.pipelines[pipeline.TenantID]
	for i, existing := range list {
		if existing.PipelineID == pipeline.PipelineID {
			list[i] = pipeline
			return
		}
	}
	s.pipelines[pipeline.TenantID] = append(list, pipeline)
}

// PutKey adds or replaces a key-store record.
func (s *InMemoryService) PutKey(tenantID string, params *model.KeyStoreParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byType := s.keys[tenantID]
	if byType == nil {
		byType = map[string]*model.KeyStoreParams{}
		s.keys[tenantID] = byType
	}
	byType[params.KeyType] = params
}

func (s *InMemoryService) TopicByCode(_ context.Context, tenantID, code string) (*model.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, topic := range s.topics[tenantID] {
		if topic.Code == code {
			return topic, nil
		}
	}
	return nil, kerrors.TopicNotFound(tenantID, code)
}

func (s *InMemoryService) TopicByID(_ context.Context, tenantID, topicID string) (*model.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, topic := range s.topics[tenantID] {
		if topic.TopicID == topicID {
			return topic, nil
		}
	}
	return nil, kerrors.TopicNotFound(tenantID, topicID)
}

func (s *InMemoryService) PipelinesByTopicID(_ context.Context, tenantID, topicID string) ([]*model.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Pipeline
	for _, pipeline := range s.pipelines[tenantID] {
		if pipeline.TopicID == topicID {
			out = append(out, pipeline)
		}
	}
	return out, nil
}

func (s *InMemoryService) PipelineByID(_ context.Context, tenantID, pipelineID string) (*model.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pipeline := range s.pipelines[tenantID] {
		if pipeline.PipelineID == pipelineID {
			return pipeline, nil
		}
	}
	return nil, kerrors.PipelineNotFound(tenantID, pipelineID)
}

func (s *InMemoryService) Find(_ context.Context, tenantID, keyType string) (*model.KeyStoreParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	params, ok := s.keys[tenantID][keyType]
	if !ok {
		return nil, kerrors.New(kerrors.CodeKeyStoreMissed, "key[%s] is not configured for tenant[%s]", keyType, tenantID)
	}
	return params, nil
}
