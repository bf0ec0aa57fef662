package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/park285/chessboard/internal/board"
	"github.com/park285/chessboard/internal/rules"
)

func TestRenderPNGStartPosition(t *testing.T) {
	v := board.NewView(rules.Factory)
	r := NewSVGBoardRenderer()
	out, err := r.RenderPNG(context.Background(), v.Snapshot(), RenderOptions{Header: "Local game"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 8*defaultSquareSize+56 || b.Dy() != 8*defaultSquareSize+104 {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestRenderFlipDiffers(t *testing.T) {
	v := board.NewView(rules.Factory)
	v.Click("e2")
	v.Click("e4")
	snap := v.Snapshot()
	r := NewSVGBoardRenderer()
	normal, err := r.RenderPNG(context.Background(), snap, RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	flipped, err := r.RenderPNG(context.Background(), snap, RenderOptions{Flip: true})
	if err != nil {
		t.Fatalf("render flipped: %v", err)
	}
	if bytes.Equal(normal, flipped) {
		t.Fatalf("expected different images for flipped orientation")
	}
}

func TestRenderSelectionChangesImage(t *testing.T) {
	v := board.NewView(rules.Factory)
	r := NewSVGBoardRenderer()
	plain, err := r.RenderPNG(context.Background(), v.Snapshot(), RenderOptions{SquareSize: 32})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	v.Click("g1")
	selected, err := r.RenderPNG(context.Background(), v.Snapshot(), RenderOptions{SquareSize: 32})
	if err != nil {
		t.Fatalf("render selected: %v", err)
	}
	if bytes.Equal(plain, selected) {
		t.Fatalf("selection overlay missing")
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	r := NewSVGBoardRenderer()
	snap := board.NewView(rules.Factory).Snapshot()
	if _, err := r.RenderPNG(context.Background(), snap, RenderOptions{SquareSize: 4}); err == nil {
		t.Fatalf("expected square size error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, snap, RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestPieceAssetsLoad(t *testing.T) {
	for _, c := range []board.Color{board.White, board.Black} {
		for _, pt := range []board.PieceType{board.King, board.Queen, board.Rook, board.Bishop, board.Knight, board.Pawn} {
			p := board.Piece{Color: c, Type: pt}
			if _, err := renderPieceImage(p, 32); err != nil {
				t.Fatalf("%s: %v", pieceAssetName(p), err)
			}
		}
	}
	if got := pieceAssetName(board.Piece{Color: board.Black, Type: board.Knight}); got != "assets/pieces/bN.svg" {
		t.Fatalf("asset name %s", got)
	}
}
