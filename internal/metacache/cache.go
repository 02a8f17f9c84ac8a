// Package metacache keeps parsed annotation blocks for vault documents and
// publishes a change event every time an entry is recomputed.
package metacache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/store"
)

// TopicChanged carries one Change per recomputed document.
const TopicChanged = "metadata.changed"

// Annotations is the cached view of one document's leading annotation block.
type Annotations struct {
	Frontmatter map[string]any
	Malformed   bool
	Tags        []string
	Size        int64
}

// Change is published after an entry is recomputed or dropped.
type Change struct {
	Path    string `json:"path"`
	Removed bool   `json:"removed,omitempty"`
}

type Cache struct {
	vault   *store.Vault
	entries *cache.Cache
	pubSub  *gochannel.GoChannel
	logger  *zap.Logger
}

func New(vault *store.Vault, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("metacache")
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		newWatermillLogger(logger),
	)
	return &Cache{
		vault:   vault,
		entries: cache.New(cache.NoExpiration, 0),
		pubSub:  pubSub,
		logger:  logger,
	}
}

// GetCache returns the annotations for path. ok is false when the document
// has never been indexed.
func (c *Cache) GetCache(path string) (*Annotations, bool) {
	if x, found := c.entries.Get(cacheKey(path)); found {
		return x.(*Annotations), true
	}
	return nil, false
}

// Recompute re-reads path and replaces its entry. A missing document is
// forgotten instead.
func (c *Cache) Recompute(path string) error {
	text, err := c.vault.Read(path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.Forget(path)
			return nil
		}
		return err
	}
	a := &Annotations{Size: int64(len(text))}
	meta, body, err := store.ParseFrontmatter(text)
	switch {
	case err == nil:
		a.Frontmatter = meta
	case errors.Is(err, store.ErrNoFrontmatter):
	default:
		a.Malformed = true
		c.logger.Debug("malformed annotation block", zap.String("path", path), zap.Error(err))
	}
	a.Tags = store.ExtractInlineTags(body)
	c.entries.Set(cacheKey(path), a, cache.NoExpiration)
	c.publish(Change{Path: cacheKey(path)})
	return nil
}

func (c *Cache) Forget(path string) {
	key := cacheKey(path)
	if _, found := c.entries.Get(key); !found {
		return
	}
	c.entries.Delete(key)
	c.publish(Change{Path: key, Removed: true})
}

// IndexAll recomputes every path, stopping at the first read failure.
func (c *Cache) IndexAll(paths []string) error {
	for _, p := range paths {
		if err := c.Recompute(p); err != nil {
			return fmt.Errorf("index %s: %w", p, err)
		}
	}
	return nil
}

func (c *Cache) Len() int {
	return c.entries.ItemCount()
}

// Subscribe calls fn for every change until ctx is done. The publisher is
// released only after fn returns.
func (c *Cache) Subscribe(ctx context.Context, fn func(Change)) error {
	messages, err := c.pubSub.Subscribe(ctx, TopicChanged)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			var ch Change
			if err := json.Unmarshal(msg.Payload, &ch); err != nil {
				c.logger.Warn("dropping undecodable change", zap.String("uuid", msg.UUID), zap.Error(err))
				msg.Ack()
				continue
			}
			fn(ch)
			msg.Ack()
		}
	}()
	return nil
}

func (c *Cache) Close() error {
	return c.pubSub.Close()
}

func (c *Cache) publish(ch Change) {
	payload, err := json.Marshal(ch)
	if err != nil {
		c.logger.Error("encode change", zap.Error(err))
		return
	}
	if err := c.pubSub.Publish(TopicChanged, message.NewMessage(uuid.NewString(), payload)); err != nil {
		c.logger.Warn("publish change", zap.String("path", ch.Path), zap.Error(err))
	}
}

func cacheKey(path string) string {
	return strings.TrimPrefix(strings.TrimSpace(path), "/")
}
