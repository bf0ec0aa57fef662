package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/park285/chessboard/internal/board"
	"github.com/park285/chessboard/internal/render"
	"github.com/park285/chessboard/internal/service/session"
	"github.com/park285/chessboard/pkg/boarddto"
)

var errBadRequest = errors.New("bad request")

// classify maps a handler error to an HTTP status and the body sent to the caller.
func classify(err error) (int, boarddto.DomainError) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, boarddto.DomainError{Code: "http_error", Message: fe.Message}
	case errors.Is(err, session.ErrSessionNotFound):
		return fiber.StatusNotFound, boarddto.DomainError{Code: "session_not_found", Message: err.Error()}
	case errors.Is(err, session.ErrGameNotFound):
		return fiber.StatusNotFound, boarddto.DomainError{Code: "game_not_found", Message: err.Error()}
	case errors.Is(err, board.ErrInvalidSquare),
		errors.Is(err, board.ErrInvalidMove),
		errors.Is(err, board.ErrInvalidPiece),
		errors.Is(err, session.ErrInvalidPromotion),
		errors.Is(err, render.ErrSquareSize),
		errors.Is(err, errBadRequest):
		return fiber.StatusBadRequest, boarddto.DomainError{Code: "bad_request", Message: err.Error()}
	case errors.Is(err, session.ErrConcurrentUpdate):
		return fiber.StatusConflict, boarddto.DomainError{Code: "conflict", Message: err.Error(), Retryable: true}
	case errors.Is(err, session.ErrSessionExists):
		return fiber.StatusConflict, boarddto.DomainError{Code: "conflict", Message: err.Error()}
	default:
		return fiber.StatusInternalServerError, boarddto.DomainError{Code: "internal", Message: "internal error"}
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, body := classify(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(body)
}
