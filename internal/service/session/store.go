package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound  = errors.New("board session not found")
	ErrSessionExists    = errors.New("board session already exists")
	ErrConcurrentUpdate = errors.New("board session updated concurrently")
)

// Payload is the persisted form of one interactive board. The position itself
// is never stored; it is rebuilt by replaying Moves.
type Payload struct {
	ID        string    `json:"id"`
	Moves     []string  `json:"moves"`
	Selected  string    `json:"selected,omitempty"`
	Flip      bool      `json:"flip,omitempty"`
	Promotion string    `json:"promotion,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payload) clone() *Payload {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Moves = append([]string(nil), p.Moves...)
	return &cp
}

// Store persists session payloads. Update runs fn against the latest stored
// payload and saves the result atomically; fn may be called more than once.
type Store interface {
	Create(ctx context.Context, p *Payload) error
	Load(ctx context.Context, id string) (*Payload, error)
	Update(ctx context.Context, id string, fn func(*Payload) error) (*Payload, error)
	Delete(ctx context.Context, id string) error
}
