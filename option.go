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

package topicflow

import (
	"io"
	"time"

	"github.com/rulego/topicflow/logger"
	"github.com/rulego/topicflow/meta"
	"github.com/rulego/topicflow/runtime"
	"github.com/rulego/topicflow/storage"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger sets a custom logger implementation.
//
// Example:
//
//	custom := logger.NewLogger(logger.DEBUG, os.Stderr)
//	engine, err := topicflow.New(topicflow.WithLogger(custom))
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
		logger.SetDefault(log)
	}
}

// WithLogLevel sets the level of the default logger.
//
// Example:
//
//	engine, err := topicflow.New(topicflow.WithLogLevel(logger.OFF))
func WithLogLevel(level logger.Level) Option {
	return func(e *Engine) {
		logger.GetDefault().SetLevel(level)
	}
}

// WithLogOutput directs logs to the given writer at the given level.
func WithLogOutput(output io.Writer, level logger.Level) Option {
	return func(e *Engine) {
		log := logger.NewLogger(level, output)
		e.log = log
		logger.SetDefault(log)
	}
}

// WithDeadline bounds the wall time of one trigger, cascades included.
// Zero means no deadline.
func WithDeadline(d time.Duration) Option {
	return func(e *Engine) {
		e.deadline = d
	}
}

// WithStorage plugs in a topic-row store. The default is the in-memory
// store.
func WithStorage(store storage.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithTopicService plugs in an external topic definition source. The
// default serves definitions registered on the engine.
func WithTopicService(topics meta.TopicService) Option {
	return func(e *Engine) {
		e.topics = topics
	}
}

// WithPipelineService plugs in an external pipeline definition source.
func WithPipelineService(pipelines meta.PipelineService) Option {
	return func(e *Engine) {
		e.pipelines = pipelines
	}
}

// WithKeyStore plugs in an external key store.
func WithKeyStore(keys meta.KeyStore) Option {
	return func(e *Engine) {
		e.keys = keys
	}
}

// WithCacheSize bounds each metadata cache. Zero keeps the default.
func WithCacheSize(size int64) Option {
	return func(e *Engine) {
		e.cacheSize = size
	}
}

// WithAlarmListener registers a listener that receives alarm events as
// pipelines raise them.
func WithAlarmListener(listener runtime.AlarmListener) Option {
	return func(e *Engine) {
		e.onAlarm = listener
	}
}
