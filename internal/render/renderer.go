// Package render draws board snapshots as PNG images.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/chessboard/internal/board"
)

var ErrSquareSize = errors.New("square size out of range")

type RenderOptions struct {
	Flip bool
	// Header is drawn above the board; empty hides the panel.
	Header string
	// Caption overrides the status text under the header.
	Caption string
	// SquareSize in pixels; zero means the default.
	SquareSize int
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, snap board.Snapshot, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

const (
	defaultSquareSize = 64
	minSquareSize     = 24
	maxSquareSize     = 128
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, snap board.Snapshot, opts RenderOptions) ([]byte, error) {
	squareSize := opts.SquareSize
	if squareSize == 0 {
		squareSize = defaultSquareSize
	}
	if squareSize < minSquareSize || squareSize > maxSquareSize {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrSquareSize, squareSize, minSquareSize, maxSquareSize)
	}

	const (
		sideMargin   = 28
		topMargin    = 76
		bottomMargin = 28
		panelHeight  = 26
		panelGap     = 8
		panelRadius  = 8
		panelPadding = 16
	)

	boardSize := squareSize * 8
	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)
	layout := board.NewLayout(opts.Flip)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	caption := strings.TrimSpace(opts.Caption)
	if caption == "" {
		caption = snap.Status.String()
	}
	drawHUD(img, boardRect, strings.TrimSpace(opts.Header), caption, panelHeight, panelGap, panelRadius, panelPadding)

	drawBoardShadow(img, boardRect)
	drawSquares(img, layout, squareSize, origin)
	drawLastMove(img, snap, layout, squareSize, origin)
	if snap.Selected != board.NoSquare {
		drawSquareOverlay(img, squareRect(layout, snap.Selected, squareSize, origin), selectedColor)
	}
	if snap.Status.Kind == board.StatusCheck || snap.Status.Kind == board.StatusCheckmate {
		if king, ok := findKing(snap.Board, snap.Turn); ok {
			drawSquareOverlay(img, squareRect(layout, king, squareSize, origin), checkColor)
		}
	}
	if err := drawPieces(img, snap.Board, layout, squareSize, origin); err != nil {
		return nil, err
	}
	drawTargets(img, snap, layout, squareSize, origin)
	drawCoordinates(img, layout, squareSize, origin, sideMargin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor         = color.RGBA{R: 244, G: 241, B: 234, A: 255}
	lightSquare             = color.RGBA{233, 207, 163, 255}
	darkSquare              = color.RGBA{187, 136, 96, 255}
	selectedColor           = color.NRGBA{R: 92, G: 170, B: 96, A: 150}
	targetColor             = color.NRGBA{R: 40, G: 40, B: 40, A: 90}
	checkColor              = color.NRGBA{R: 220, G: 50, B: 47, A: 150}
	whiteMoveHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	hudPanelColor           = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudStatusPanelColor     = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor          = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary          = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudStatusTextColor      = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	boardShadowColor        = color.NRGBA{0, 0, 0, 60}
	coordinateTextColor     = color.NRGBA{R: 90, G: 70, B: 50, A: 255}
)

func captionFace() font.Face { return basicfont.Face7x13 }

func drawHUD(img *image.RGBA, boardRect image.Rectangle, header, caption string, height, gap, radius, padding int) {
	face := captionFace()
	drawer := &font.Drawer{Dst: img, Face: face}

	statusBottom := boardRect.Min.Y - gap*2
	statusTop := statusBottom - height
	statusWidth := drawer.MeasureString(caption).Round() + padding*2
	if statusWidth > boardRect.Dx() {
		statusWidth = boardRect.Dx()
	}
	left := boardRect.Min.X + (boardRect.Dx()-statusWidth)/2
	statusRect := image.Rect(left, statusTop, left+statusWidth, statusBottom)
	caption = truncateWithEllipsis(face, caption, statusRect.Dx()-padding*2)
	drawRoundedPanel(img, statusRect.Add(image.Pt(0, 3)), radius, hudShadowColor)
	drawRoundedPanel(img, statusRect, radius, hudStatusPanelColor)
	drawCenteredString(drawer, statusRect, caption, hudStatusTextColor)

	if header == "" {
		return
	}
	headerBottom := statusTop - gap
	headerRect := image.Rect(boardRect.Min.X, headerBottom-height, boardRect.Max.X, headerBottom)
	header = truncateWithEllipsis(face, header, headerRect.Dx()-padding*2)
	drawRoundedPanel(img, headerRect, radius, hudPanelColor)
	drawCenteredString(drawer, headerRect, header, hudTextPrimary)
}

func drawBoardShadow(img *image.RGBA, boardRect image.Rectangle) {
	shadowRect := image.Rect(
		boardRect.Min.X+4,
		boardRect.Min.Y+8,
		boardRect.Max.X+6,
		boardRect.Max.Y+8,
	)
	imagedraw.Draw(img, shadowRect, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
}

func drawSquares(dst imagedraw.Image, layout board.Layout, squareSize int, origin image.Point) {
	for row, line := range layout.Rows() {
		for col, sq := range line {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, grid board.Grid, layout board.Layout, squareSize int, origin image.Point) error {
	for row, line := range layout.Rows() {
		for col, sq := range line {
			piece := grid.At(sq)
			if piece.Empty() {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

// drawLastMove fills both squares for a white move and draws an arrow for a black one.
func drawLastMove(img *image.RGBA, snap board.Snapshot, layout board.Layout, squareSize int, origin image.Point) {
	lm := snap.LastMove
	if lm == nil {
		return
	}
	from := squareRect(layout, lm.From, squareSize, origin)
	to := squareRect(layout, lm.To, squareSize, origin)
	if snap.Board.At(lm.To).Color == board.Black {
		drawArrow(img, from, to, squareSize, blackMoveHighlightArrow)
		return
	}
	drawSquareOverlay(img, from, whiteMoveHighlightFill)
	drawSquareOverlay(img, to, whiteMoveHighlightFill)
}

// drawTargets marks empty destinations with a dot and captures with corner wedges.
func drawTargets(img *image.RGBA, snap board.Snapshot, layout board.Layout, squareSize int, origin image.Point) {
	for _, sq := range snap.LegalTargets {
		rect := squareRect(layout, sq, squareSize, origin)
		if snap.Board.At(sq).Empty() {
			center := image.Pt(rect.Min.X+squareSize/2, rect.Min.Y+squareSize/2)
			drawDisc(img, center, squareSize/7, targetColor)
			continue
		}
		w := float64(squareSize) / 4
		x0, y0 := float64(rect.Min.X), float64(rect.Min.Y)
		x1, y1 := float64(rect.Max.X), float64(rect.Max.Y)
		fillTriangleF(img, pointF{x0, y0}, pointF{x0 + w, y0}, pointF{x0, y0 + w}, targetColor)
		fillTriangleF(img, pointF{x1, y0}, pointF{x1 - w, y0}, pointF{x1, y0 + w}, targetColor)
		fillTriangleF(img, pointF{x0, y1}, pointF{x0 + w, y1}, pointF{x0, y1 - w}, targetColor)
		fillTriangleF(img, pointF{x1, y1}, pointF{x1 - w, y1}, pointF{x1, y1 - w}, targetColor)
	}
}

func drawCoordinates(dst imagedraw.Image, layout board.Layout, squareSize int, origin image.Point, margin int) {
	face := captionFace()
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	rows := layout.Rows()
	boardEndY := origin.Y + 8*squareSize

	for row := 0; row < 8; row++ {
		sq := rows[row][0]
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, sq.String()[1:], origin.X-margin/2, baseline)
	}
	for col := 0; col < 8; col++ {
		sq := rows[7][col]
		center := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, sq.String()[:1], center, boardEndY+ascent+4)
	}
}

func squareRect(layout board.Layout, sq board.Square, squareSize int, origin image.Point) image.Rectangle {
	row, col := layout.Position(sq)
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq board.Square) color.Color {
	if sq.Light() {
		return lightSquare
	}
	return darkSquare
}

func findKing(grid board.Grid, side board.Color) (board.Square, bool) {
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			p := grid[rank][file]
			if p.Type == board.King && p.Color == side {
				return board.SquareAt(file, rank), true
			}
		}
	}
	return board.NoSquare, false
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}
