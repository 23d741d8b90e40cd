/*
Package rtc contains the core logic of the real-time layer.

This file defines the Bridge struct: an optional Redis pub/sub relay that
carries fan-out frames across server instances. Each instance publishes to a
shared channel and delivers to its own local presence on receipt, so a user's
connections are reached no matter which instance they landed on.
*/
package rtc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campushub/internal/pkg/logx"
)

// fanoutChannel is the Redis pub/sub channel shared by all instances.
const fanoutChannel = "campushub:fanout"

// bridgeFrame is the wire format carried over Redis: the target users plus
// the already-encoded channel frame.
type bridgeFrame struct {
	Targets []string        `json:"targets"`
	Frame   json.RawMessage `json:"frame"`
}

// Bridge relays fan-out frames across instances through Redis pub/sub.
// Delivery inherits the channel's best-effort semantics: no queuing, no
// redelivery, no ordering guarantee.
type Bridge struct {
	rdb *redis.Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger zerolog.Logger
}

// NewBridge constructs a Bridge over an established Redis client.
func NewBridge(rdb *redis.Client) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		rdb:    rdb,
		ctx:    ctx,
		cancel: cancel,
		logger: logx.Logger().With().Str("component", "bridge").Logger(),
	}
}

// Publish sends one frame for the target users to every instance, this one
// included. Local delivery happens when the subscription loops back.
func (b *Bridge) Publish(targetUserIDs []string, frame []byte) error {
	payload, err := json.Marshal(bridgeFrame{
		Targets: targetUserIDs,
		Frame:   frame,
	})
	if err != nil {
		return err
	}

	return b.rdb.Publish(b.ctx, fanoutChannel, payload).Err()
}

// Run starts the subscription loop, invoking deliver for every received
// frame until Close is called.
func (b *Bridge) Run(deliver func(targetUserIDs []string, frame []byte)) {
	pubsub := b.rdb.Subscribe(b.ctx, fanoutChannel)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer pubsub.Close()

		b.logger.Info().Str("channel", fanoutChannel).Msg("Bridge subscription started.")

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var bf bridgeFrame
				if err := json.Unmarshal([]byte(msg.Payload), &bf); err != nil {
					b.logger.Warn().Err(err).Msg("Dropping malformed bridge frame")
					continue
				}

				deliver(bf.Targets, bf.Frame)

			case <-b.ctx.Done():
				return
			}
		}
	}()
}

// Close stops the subscription loop and waits for it to exit.
func (b *Bridge) Close() {
	b.cancel()
	b.wg.Wait()
	b.logger.Info().Msg("Bridge stopped.")
}
