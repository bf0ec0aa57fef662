package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/park285/chessboard/internal/adapter/boardpresenter"
	"github.com/park285/chessboard/internal/render"
	"github.com/park285/chessboard/internal/service/session"
	"github.com/park285/chessboard/pkg/boarddto"
)

func (s *Server) createSession(c *fiber.Ctx) error {
	st, err := s.svc.Create(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s.dto(st))
}

func (s *Server) getSession(c *fiber.Ctx) error {
	st, err := s.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(s.dto(st))
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.svc.Delete(c.UserContext(), id); err != nil {
		return err
	}
	s.hub.Drop(id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) click(c *fiber.Ctx) error {
	var req boarddto.ClickRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	st, result, err := s.svc.Click(c.UserContext(), c.Params("id"), req.Square)
	if err != nil {
		return err
	}
	out := s.dto(st)
	s.publish(st.ID, out)
	return c.JSON(boarddto.ClickResponse{Result: result.String(), State: out})
}

func (s *Server) reset(c *fiber.Ctx) error {
	return s.respond(c)(s.svc.Reset(c.UserContext(), c.Params("id")))
}

func (s *Server) undo(c *fiber.Ctx) error {
	return s.respond(c)(s.svc.Undo(c.UserContext(), c.Params("id")))
}

func (s *Server) flip(c *fiber.Ctx) error {
	return s.respond(c)(s.svc.Flip(c.UserContext(), c.Params("id")))
}

func (s *Server) jump(c *fiber.Ctx) error {
	var req boarddto.JumpRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.respond(c)(s.svc.JumpTo(c.UserContext(), c.Params("id"), req.Ply))
}

func (s *Server) promotion(c *fiber.Ctx) error {
	var req boarddto.PromotionRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.respond(c)(s.svc.SetPromotion(c.UserContext(), c.Params("id"), req.Piece))
}

// respond publishes and writes the state produced by a session event.
func (s *Server) respond(c *fiber.Ctx) func(*session.State, error) error {
	return func(st *session.State, err error) error {
		if err != nil {
			return err
		}
		out := s.dto(st)
		s.publish(st.ID, out)
		return c.JSON(out)
	}
}

func (s *Server) pgn(c *fiber.Ctx) error {
	text, err := s.svc.PGN(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/x-chess-pgn")
	return c.SendString(text)
}

func (s *Server) boardImage(c *fiber.Ctx) error {
	st, err := s.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	size := c.QueryInt("size", 0)
	opts := render.RenderOptions{
		Flip:       c.QueryBool("flip", st.Flip),
		Header:     c.Query("header"),
		Caption:    boardpresenter.StatusText(st.Snapshot.Status, s.cat),
		SquareSize: size,
	}
	img, err := s.renderer.RenderPNG(c.UserContext(), st.Snapshot, opts)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(img)
}

func (s *Server) sessionGames(c *fiber.Ctx) error {
	games, err := s.svc.SessionGames(c.UserContext(), c.Params("id"), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(boardpresenter.ToDTOGames(games))
}

func (s *Server) recentGames(c *fiber.Ctx) error {
	games, err := s.svc.RecentGames(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(boardpresenter.ToDTOGames(games))
}

func (s *Server) game(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: game id %q", errBadRequest, c.Params("id"))
	}
	g, err := s.svc.Game(c.UserContext(), int64(id))
	if err != nil {
		return err
	}
	return c.JSON(boardpresenter.ToDTOGame(g))
}

func (s *Server) dto(st *session.State) *boarddto.SessionState {
	return boardpresenter.ToDTOState(st, s.cat)
}

func (s *Server) publish(id string, st *boarddto.SessionState) {
	msg, err := boarddto.NewMessage(boarddto.MessageTypeState, st)
	if err != nil {
		s.logger.Warn("encode state frame", zap.String("session_uuid", id), zap.Error(err))
		return
	}
	s.hub.Publish(id, msg)
}
