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

// Package topicflow is a multi-tenant topic pipeline engine: topics are
// tenant-scoped record tables, and pipelines attached to a topic react to
// its changes through gated stages of units whose actions read, write and
// alarm over topic rows. Writes cascade breadth-first into the pipelines
// of the changed topics, all under one trace.
//
// Example:
//
//	engine, err := topicflow.New()
//	if err != nil {
//		panic(err)
//	}
//	engine.RegisterTopic(orderTopic)
//	engine.RegisterPipeline(orderPipeline)
//	results, err := engine.Trigger(ctx, &model.TopicTrigger{
//		TopicCode:   "order",
//		CurrentData: map[string]interface{}{"order_id": "o-1", "amount": 120},
//		TenantID:    "t-1",
//		Principal:   model.Principal{TenantID: "t-1", UserID: "u-1"},
//	})
package topicflow

import (
	"context"
	"time"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/logger"
	"github.com/rulego/topicflow/meta"
	"github.com/rulego/topicflow/model"
	"github.com/rulego/topicflow/runtime"
	"github.com/rulego/topicflow/storage"
)

// Engine is the embeddable topic pipeline engine. It wires the metadata
// catalog, the row store and the execution runtime behind one facade.
type Engine struct {
	log       logger.Logger
	deadline  time.Duration
	store     storage.Store
	topics    meta.TopicService
	pipelines meta.PipelineService
	keys      meta.KeyStore
	cacheSize int64
	onAlarm   runtime.AlarmListener

	definitions *meta.InMemoryService
	catalog     *meta.Catalog
	runner      *runtime.Runner
}

// New creates an engine. Without options it runs fully in-memory:
// definitions registered on the engine, rows in the memory store.
func New(options ...Option) (*Engine, error) {
	e := &Engine{}
	for _, option := range options {
		option(e)
	}
	if e.log == nil {
		e.log = logger.GetDefault()
	}
	if e.store == nil {
		e.store = storage.NewMemoryStore()
	}
	if e.topics == nil || e.pipelines == nil || e.keys == nil {
		e.definitions = meta.NewInMemoryService()
		if e.topics == nil {
			e.topics = e.definitions
		}
		if e.pipelines == nil {
			e.pipelines = e.definitions
		}
		if e.keys == nil {
			e.keys = e.definitions
		}
	}
	catalog, err := meta.NewCatalog(e.topics, e.pipelines, e.cacheSize)
	if err != nil {
		return nil, err
	}
	e.catalog = catalog
	e.runner = &runtime.Runner{
		Catalog:  catalog,
		Store:    e.store,
		Log:      e.log,
		Deadline: e.deadline,
		OnAlarm:  e.onAlarm,
	}
	return e, nil
}

// Trigger runs every enabled pipeline reachable from the topic change and
// returns one result per execution, in execution order.
func (e *Engine) Trigger(ctx context.Context, trigger *model.TopicTrigger) ([]runtime.ExecutionResult, error) {
	return e.runner.Trigger(ctx, trigger)
}

// RegisterTopic registers a topic definition on the built-in definition
// store and drops any stale cache entries for it. It fails when the
// engine was wired to an external topic service.
func (e *Engine) RegisterTopic(topic *model.Topic) error {
	if e.definitions == nil {
		return kerrors.New(kerrors.CodeStorageFailed, "engine uses an external topic service")
	}
	e.definitions.RegisterTopic(topic)
	e.catalog.InvalidateTopic(topic.TenantID, topic.TopicID, topic.Code)
	return nil
}

// RegisterPipeline registers a pipeline definition on the built-in
// definition store and drops the compiled programs of its topic.
func (e *Engine) RegisterPipeline(pipeline *model.Pipeline) error {
	if e.definitions == nil {
		return kerrors.New(kerrors.CodeStorageFailed, "engine uses an external pipeline service")
	}
	e.definitions.RegisterPipeline(pipeline)
	e.catalog.InvalidatePrograms(pipeline.TenantID, pipeline.TopicID)
	return nil
}

// PutKey registers a key-store record on the built-in definition store.
func (e *Engine) PutKey(tenantID string, params *model.KeyStoreParams) error {
	if e.definitions == nil {
		return kerrors.New(kerrors.CodeStorageFailed, "engine uses an external key store")
	}
	e.definitions.PutKey(tenantID, params)
	return nil
}

// Keys exposes the key store the engine was wired with.
func (e *Engine) Keys() meta.KeyStore {
	return e.keys
}

// Store exposes the row store the engine was wired with.
func (e *Engine) Store() storage.Store {
	return e.store
}

// Catalog exposes the metadata catalog, mainly for cache invalidation
// when definitions change behind an external service.
func (e *Engine) Catalog() *meta.Catalog {
	return e.catalog
}
