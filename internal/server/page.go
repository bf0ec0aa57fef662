package server

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/park285/chessboard/internal/adapter/boardpresenter"
	"github.com/park285/chessboard/internal/service/session"
)

// newPage starts a session and sends the browser to its page.
func (s *Server) newPage(c *fiber.Ctx) error {
	st, err := s.svc.Create(c.UserContext())
	if err != nil {
		return err
	}
	return c.Redirect("/play/"+st.ID, fiber.StatusSeeOther)
}

func (s *Server) page(c *fiber.Ctx) error {
	st, err := s.svc.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, session.ErrSessionNotFound) {
		// 만료된 세션은 새 판으로
		return c.Redirect("/play", fiber.StatusSeeOther)
	}
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := boardpresenter.RenderPage(&buf, st, s.cat); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

func (s *Server) pageClick(c *fiber.Ctx) error {
	st, _, err := s.svc.Click(c.UserContext(), c.Params("id"), c.FormValue("square"))
	return s.back(c, st, err)
}

func (s *Server) pageReset(c *fiber.Ctx) error {
	st, err := s.svc.Reset(c.UserContext(), c.Params("id"))
	return s.back(c, st, err)
}

func (s *Server) pageUndo(c *fiber.Ctx) error {
	st, err := s.svc.Undo(c.UserContext(), c.Params("id"))
	return s.back(c, st, err)
}

func (s *Server) pageFlip(c *fiber.Ctx) error {
	st, err := s.svc.Flip(c.UserContext(), c.Params("id"))
	return s.back(c, st, err)
}

func (s *Server) pageJump(c *fiber.Ctx) error {
	ply, err := strconv.Atoi(c.FormValue("ply"))
	if err != nil {
		return fmt.Errorf("%w: ply %q", errBadRequest, c.FormValue("ply"))
	}
	st, err := s.svc.JumpTo(c.UserContext(), c.Params("id"), ply)
	return s.back(c, st, err)
}

func (s *Server) pagePromotion(c *fiber.Ctx) error {
	st, err := s.svc.SetPromotion(c.UserContext(), c.Params("id"), c.FormValue("piece"))
	return s.back(c, st, err)
}

// back publishes the new state and redirects to the session page.
func (s *Server) back(c *fiber.Ctx, st *session.State, err error) error {
	if err != nil {
		return err
	}
	s.publish(st.ID, s.dto(st))
	return c.Redirect("/play/"+st.ID, fiber.StatusSeeOther)
}
