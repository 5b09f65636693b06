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

	theine "github.com/Yiling-J/theine-go"
	"golang.org/x/sync/singleflight"

	"github.com/rulego/topicflow/compile"
	"github.com/rulego/topicflow/schema"
)

// DefaultCacheSize is the per-cache entry budget when none is configured.
const DefaultCacheSize = 4096

// Catalog caches normalized topics and compiled pipeline programs per
// tenant. Fetch, normalize and compile happen at most once per key at a
// time; concurrent misses for the same key share one flight.
type Catalog struct {
	topics    TopicService
	pipelines PipelineService

	topicByCode *theine.Cache[string, *schema.Topic]
	topicByID   *theine.Cache[string, *schema.Topic]
	programs    *theine.Cache[string, []*compile.Pipeline]

	flight singleflight.Group
}

// NewCatalog builds a catalog over the given services. cacheSize bounds
// each cache; zero or negative picks the default.
func NewCatalog(topics TopicService, pipelines PipelineService, cacheSize int64) (*Catalog, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	byCode, err := theine.NewBuilder[string, *schema.Topic](cacheSize).Build()
	if err != nil {
		return nil, err
	}
	byID, err := theine.NewBuilder[string, *schema.Topic](cacheSize).Build()
	if err != nil {
		return nil, err
	}
	programs, err := theine.NewBuilder[string, []*compile.Pipeline](cacheSize).Build()
	if err != nil {
		return nil, err
	}
	return &Catalog{
		topics:      topics,
		pipelines:   pipelines,
		topicByCode: byCode,
		topicByID:   byID,
		programs:    programs,
	}, nil
}

// TopicByCode returns the normalized topic for the tenant.
func (c *Catalog) TopicByCode(ctx context.Context, tenantID, code string) (*schema.Topic, error) {
	key := tenantID + "/code/" + code
	if topic, ok := c.topicByCode.Get(key); ok {
		return topic, nil
	}
	out, err, _ := c.flight.Do(key, func() (interface{}, error) {
		raw, err := c.topics.TopicByCode(ctx, tenantID, code)
		if err != nil {
			return nil, err
		}
		topic, err := schema.NormalizeTopic(raw)
		if err != nil {
			return nil, err
		}
		c.keepTopic(tenantID, topic)
		return topic, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*schema.Topic), nil
}

// TopicByID returns the normalized topic for the tenant.
func (c *Catalog) TopicByID(ctx context.Context, tenantID, topicID string) (*schema.Topic, error) {
	key := tenantID + "/id/" + topicID
	if topic, ok := c.topicByID.Get(key); ok {
		return topic, nil
	}
	out, err, _ := c.flight.Do(key, func() (interface{}, error) {
		raw, err := c.topics.TopicByID(ctx, tenantID, topicID)
		if err != nil {
			return nil, err
		}
		topic, err := schema.NormalizeTopic(raw)
		if err != nil {
			return nil, err
		}
		c.keepTopic(tenantID, topic)
		return topic, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*schema.Topic), nil
}

func (c *Catalog) keepTopic(tenantID string, topic *schema.Topic) {
	c.topicByCode.Set(tenantID+"/code/"+topic.Code, topic, 1)
	c.topicByID.Set(tenantID+"/id/"+topic.TopicID, topic, 1)
}

// ProgramsFor returns the compiled programs of every enabled pipeline
// attached to the topic, in definition order.
func (c *Catalog) ProgramsFor(ctx context.Context, topic *schema.Topic) ([]*compile.Pipeline, error) {
	key := topic.TenantID + "/programs/" + topic.TopicID
	if programs, ok := c.programs.Get(key); ok {
		return programs, nil
	}
	out, err, _ := c.flight.Do(key, func() (interface{}, error) {
		raws, err := c.pipelines.PipelinesByTopicID(ctx, topic.TenantID, topic.TopicID)
		if err != nil {
			return nil, err
		}
		compiler := compile.NewCompiler(topic, &tenantResolver{catalog: c, tenantID: topic.TenantID})
		programs := make([]*compile.Pipeline, 0, len(raws))
		for _, raw := range raws {
			if !raw.Enabled {
				continue
			}
			normalized, err := schema.NormalizePipeline(raw)
			if err != nil {
				return nil, err
			}
			program, err := compiler.CompilePipeline(ctx, normalized)
			if err != nil {
				return nil, err
			}
			programs = append(programs, program)
		}
		c.programs.Set(key, programs, 1)
		return programs, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]*compile.Pipeline), nil
}

// InvalidateTopic drops the topic and the programs compiled against it.
func (c *Catalog) InvalidateTopic(tenantID, topicID, code string) {
	c.topicByCode.Delete(tenantID + "/code/" + code)
	c.topicByID.Delete(tenantID + "/id/" + topicID)
	c.programs.Delete(tenantID + "/programs/" + topicID)
}

// InvalidatePrograms drops the compiled programs of one topic, keeping
// the topic itself cached.
func (c *Catalog) InvalidatePrograms(tenantID, topicID string) {
	c.programs.Delete(tenantID + "/programs/" + topicID)
}

// tenantResolver adapts the catalog into the compiler's topic resolver,
// pinning the tenant.
type tenantResolver struct {
	catalog  *Catalog
	tenantID string
}

func (r *tenantResolver) TopicByID(ctx context.Context, topicID string) (*schema.Topic, error) {
	return r.catalog.TopicByID(ctx, r.tenantID, topicID)
}
