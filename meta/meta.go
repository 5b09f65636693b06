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

// Package meta is the metadata seam: topic and pipeline definitions live
// outside the kernel and are fetched through these services, normalized,
// compiled and cached per tenant. Embedded deployments use the in-memory
// implementations in this package.
package meta

import (
	"context"

	"github.com/rulego/topicflow/model"
)

// TopicService resolves raw topic definitions for a tenant.
type TopicService interface {
	TopicByCode(ctx context.Context, tenantID, code string) (*model.Topic, error)
	TopicByID(ctx context.Context, tenantID, topicID string) (*model.Topic, error)
}

// PipelineService resolves raw pipeline definitions for a tenant.
type PipelineService interface {
	// PipelinesByTopicID returns every pipeline attached to the topic,
	// enabled or not, in definition order.
	PipelinesByTopicID(ctx context.Context, tenantID, topicID string) ([]*model.Pipeline, error)
	PipelineByID(ctx context.Context, tenantID, pipelineID string) (*model.Pipeline, error)
}

// KeyStore resolves tenant-scoped configuration records by key type.
type KeyStore interface {
	Find(ctx context.Context, tenantID, keyType string) (*model.KeyStoreParams, error)
}
