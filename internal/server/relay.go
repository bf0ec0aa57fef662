package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chessboard/pkg/boarddto"
)

const relayChannel = "board:feed"

type relayEnvelope struct {
	Origin  string           `json:"origin"`
	Session string           `json:"session"`
	Drop    bool             `json:"drop,omitempty"`
	Message boarddto.Message `json:"message"`
}

// Relay mirrors hub traffic between server instances that share one Redis,
// so a watcher sees events no matter which instance handled them.
type Relay struct {
	rdb    *redis.Client
	hub    *Hub
	origin string
	logger *zap.Logger

	ps     *redis.PubSub
	wg     sync.WaitGroup
	closeO sync.Once
}

func NewRelay(rdb *redis.Client, hub *Hub, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{rdb: rdb, hub: hub, origin: uuid.NewString(), logger: logger}
}

// Start subscribes and hooks the hub. Frames published afterwards reach
// the other instances.
func (r *Relay) Start(ctx context.Context) error {
	if r.rdb == nil || r.hub == nil {
		return errors.New("relay needs redis and a hub")
	}
	ps := r.rdb.Subscribe(ctx, relayChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}
	r.ps = ps
	r.hub.setForwarder(r.forward)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for m := range ps.Channel() {
			var env relayEnvelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				r.logger.Warn("relay decode failed", zap.Error(err))
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			if env.Drop {
				r.hub.dropLocal(env.Session)
				continue
			}
			r.hub.deliver(env.Session, env.Message)
		}
	}()
	return nil
}

func (r *Relay) Close() error {
	var err error
	r.closeO.Do(func() {
		r.hub.setForwarder(nil)
		if r.ps != nil {
			err = r.ps.Close()
		}
		r.wg.Wait()
	})
	return err
}

func (r *Relay) forward(id string, msg boarddto.Message, drop bool) {
	raw, err := json.Marshal(relayEnvelope{Origin: r.origin, Session: id, Drop: drop, Message: msg})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	if err := r.rdb.Publish(ctx, relayChannel, raw).Err(); err != nil {
		r.logger.Warn("relay publish failed", zap.String("session_uuid", id), zap.Error(err))
	}
}
