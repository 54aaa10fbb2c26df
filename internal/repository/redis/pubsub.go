package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// TiersPubSub announces committed inventory changes of a tier to every instance.
type TiersPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewTiersPubSub(rdb *redis.Client) *TiersPubSub {
	return &TiersPubSub{
		rdb:     rdb,
		channel: ChannelTiersChanged(),
	}
}

type tierChangedMsg struct {
	Type   string `json:"type"`
	TierID int64  `json:"tier_id"`
	TsUnix int64  `json:"ts_unix"`
}

func (p *TiersPubSub) PublishTierChanged(ctx context.Context, tierID int64) error {
	msg := tierChangedMsg{
		Type:   "tier_changed",
		TierID: tierID,
		TsUnix: time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe calls handler for every tier-changed message until ctx is done.
func (p *TiersPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, tierID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg tierChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil &&
				msg.TierID != 0 {
				handler(ctx, msg.TierID)
			}
		}
	}
}
