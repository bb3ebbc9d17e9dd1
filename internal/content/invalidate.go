package content

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// InvalidationChannel is the pub/sub channel that carries changed route paths.
const InvalidationChannel = "content.invalidate"

// Invalidator tells downstream caches which route paths changed.
type Invalidator interface {
	Invalidate(ctx context.Context, paths ...string) error
}

// NopInvalidator drops every signal.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(context.Context, ...string) error { return nil }

// Publisher is satisfied by *cache.Cache.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

// RedisInvalidator publishes invalidation messages on a Redis channel.
type RedisInvalidator struct {
	pub Publisher
	now func() time.Time
}

func NewRedisInvalidator(pub Publisher) *RedisInvalidator {
	return &RedisInvalidator{pub: pub, now: time.Now}
}

// InvalidationMessage is the JSON body published for each change.
type InvalidationMessage struct {
	Paths []string  `json:"paths"`
	At    time.Time `json:"at"`
}

func (r *RedisInvalidator) Invalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	msg, err := json.Marshal(InvalidationMessage{Paths: paths, At: r.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal invalidation: %w", err)
	}
	return r.pub.Publish(ctx, InvalidationChannel, string(msg))
}

func resourcePaths(id string) []string {
	return []string{"/api/resources", "/api/resources/" + id}
}

func chapterPaths(resourceID string) []string {
	return []string{"/api/resources/" + resourceID + "/chapters"}
}

func childPaths(parentID string) []string {
	return []string{"/api/contents/" + parentID + "/children"}
}

func questionPaths(contentID string) []string {
	return []string{"/api/contents/" + contentID + "/questions"}
}
