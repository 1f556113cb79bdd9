package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/casehall-backend/internal/platform/logger"
	"github.com/yungbote/casehall-backend/internal/realtime"
)

const defaultPrefix = "casehall.events"

// redisBus fans events out over Redis pub/sub. Each recipient scope gets its
// own channel ("<prefix>:case:<id>") so edge nodes can subscribe narrowly;
// StartForwarder pattern-subscribes to the whole prefix.
type redisBus struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisBus publishes under prefix. The client is owned by the caller;
// Close does not close it.
func NewRedisBus(log *logger.Logger, rdb goredis.UniversalClient, prefix string) (Bus, error) {
	switch {
	case log == nil:
		return nil, errors.New("logger required")
	case rdb == nil:
		return nil, errors.New("redis client required")
	}
	if prefix = strings.Trim(strings.TrimSpace(prefix), ":"); prefix == "" {
		prefix = defaultPrefix
	}
	return &redisBus{log: log.With("service", "RedisEventBus", "prefix", prefix), rdb: rdb, prefix: prefix}, nil
}

func (b *redisBus) channelFor(scope string) string {
	return b.prefix + ":" + scope
}

func (b *redisBus) Publish(ctx context.Context, ev realtime.Event) error {
	if strings.TrimSpace(ev.Channel) == "" || ev.Event == "" {
		return fmt.Errorf("event needs a channel and a type: %+v", ev)
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channelFor(ev.Channel), raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	if onEvent == nil {
		return errors.New("onEvent callback required")
	}
	sub := b.rdb.PSubscribe(ctx, b.channelFor("*"))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe %s: %w", b.prefix, err)
	}
	go b.forward(ctx, sub, onEvent)
	return nil
}

func (b *redisBus) forward(ctx context.Context, sub *goredis.PubSub, onEvent func(realtime.Event)) {
	defer sub.Close()
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			ev, err := decodeEvent(m.Payload)
			if err != nil {
				b.log.Warn("dropping redis event", "channel", m.Channel, "error", err)
				continue
			}
			onEvent(ev)
		}
	}
}

func decodeEvent(payload string) (realtime.Event, error) {
	var ev realtime.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.Channel == "" || ev.Event == "" {
		return ev, errors.New("event missing channel or type")
	}
	return ev, nil
}

func (b *redisBus) Close() error { return nil }
