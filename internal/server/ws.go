package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/park285/chessboard/internal/service/session"
	"github.com/park285/chessboard/pkg/boarddto"
)

const frameTimeout = 5 * time.Second

// watch streams state frames for one session and applies the commands the
// client sends back. Only this goroutine writes to the connection.
func (s *Server) watch(c *websocket.Conn) {
	id := c.Params("id")

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	st, err := s.svc.Get(ctx, id)
	cancel()
	if err != nil {
		_ = c.WriteJSON(errorFrame(err))
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session unavailable"))
		return
	}

	sub := s.hub.Subscribe(id)
	defer s.hub.Unsubscribe(id, sub)

	first, err := boarddto.NewMessage(boarddto.MessageTypeState, s.dto(st))
	if err != nil || c.WriteJSON(first) != nil {
		return
	}
	s.logger.Debug("ws watcher joined", zap.String("session_uuid", id), zap.Int("watchers", s.hub.Count(id)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			mt, raw, err := c.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			var msg boarddto.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				s.hub.Send(id, sub, errorFrame(fmt.Errorf("%w: %v", errBadRequest, err)))
				continue
			}
			s.handleFrame(id, sub, msg)
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub.C():
			if !ok {
				_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.WriteJSON(msg); err != nil {
				s.logger.Debug("ws write failed", zap.String("session_uuid", id), zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) handleFrame(id string, sub *Subscriber, msg boarddto.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	var (
		st  *session.State
		err error
	)
	switch msg.Type {
	case boarddto.MessageTypeClick:
		var req boarddto.ClickRequest
		if err = decodePayload(msg.Payload, &req); err == nil {
			st, _, err = s.svc.Click(ctx, id, req.Square)
		}
	case boarddto.MessageTypeReset:
		st, err = s.svc.Reset(ctx, id)
	case boarddto.MessageTypeUndo:
		st, err = s.svc.Undo(ctx, id)
	case boarddto.MessageTypeFlip:
		st, err = s.svc.Flip(ctx, id)
	case boarddto.MessageTypeJump:
		var req boarddto.JumpRequest
		if err = decodePayload(msg.Payload, &req); err == nil {
			st, err = s.svc.JumpTo(ctx, id, req.Ply)
		}
	case boarddto.MessageTypePromotion:
		var req boarddto.PromotionRequest
		if err = decodePayload(msg.Payload, &req); err == nil {
			st, err = s.svc.SetPromotion(ctx, id, req.Piece)
		}
	default:
		err = fmt.Errorf("%w: unknown message type %q", errBadRequest, msg.Type)
	}
	if err != nil {
		s.hub.Send(id, sub, errorFrame(err))
		return
	}
	s.publish(id, s.dto(st))
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", errBadRequest)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func errorFrame(err error) boarddto.Message {
	_, body := classify(err)
	msg, _ := boarddto.NewMessage(boarddto.MessageTypeError, body)
	return msg
}
