package chess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	LastMove *MoveHighlight
	Selected *nchess.Square
	Targets  []nchess.Square
	BestMove *MoveHighlight
	// EvalShare is White's share of the evaluation bar in [0,1]. nil hides the bar.
	EvalShare *float64
	Header    string
	Status    string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

type pngBoardRenderer struct {
	squareSize int
}

// NewBoardRenderer draws boards of roughly boardSize pixels (eight squares).
func NewBoardRenderer(boardSize int) BoardRenderer {
	sq := boardSize / 8
	if sq < 24 {
		sq = 24
	}
	return &pngBoardRenderer{squareSize: sq}
}

const (
	leftMargin   = 40
	rightMargin  = 28
	topMargin    = 44
	bottomMargin = 28
	evalBarWidth = 16
)

var (
	backgroundColor = color.RGBA{250, 249, 246, 255}
	lightSquare     = color.RGBA{240, 217, 181, 255}
	darkSquare      = color.RGBA{181, 136, 99, 255}
	highlightColor  = color.RGBA{255, 255, 0, 255}
	targetColor     = color.NRGBA{R: 255, G: 255, B: 0, A: 200}
	bestMoveColor   = color.NRGBA{R: 0, G: 200, B: 0, A: 190}
	bestMoveEnd     = color.NRGBA{R: 230, G: 0, B: 0, A: 210}
	labelColor      = color.RGBA{20, 20, 20, 255}
	evalWhite       = color.RGBA{245, 245, 245, 255}
	evalBlack       = color.RGBA{35, 35, 35, 255}
)

var (
	boardRanks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	boardFiles = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func (r *pngBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := r.squareSize * 8
	img := image.NewRGBA(image.Rect(0, 0, leftMargin+size+rightMargin, topMargin+size+bottomMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	c := newCanvas(img, image.Pt(leftMargin, topMargin), r.squareSize)
	c.header(opts.Header, opts.Status)
	c.squares()

	if opts.LastMove != nil {
		c.outline(opts.LastMove.From, 3, highlightColor)
		c.outline(opts.LastMove.To, 3, highlightColor)
	}
	if opts.Selected != nil {
		c.outline(*opts.Selected, 3, highlightColor)
	}
	if err := c.pieces(board); err != nil {
		return nil, err
	}
	for _, sq := range opts.Targets {
		x, y := c.center(sq)
		c.disc(x, y, float64(r.squareSize)/6, targetColor)
	}
	if opts.BestMove != nil {
		c.arrow(opts.BestMove.From, opts.BestMove.To, bestMoveColor)
	}
	if opts.EvalShare != nil {
		c.evalBar(*opts.EvalShare)
	}
	c.labels()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type canvas struct {
	img    *image.RGBA
	origin image.Point
	sq     int
	filler *rasterx.Filler
	face   font.Face
}

func newCanvas(img *image.RGBA, origin image.Point, squareSize int) *canvas {
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	return &canvas{
		img:    img,
		origin: origin,
		sq:     squareSize,
		filler: rasterx.NewFiller(b.Dx(), b.Dy(), scanner),
		face:   basicfont.Face7x13,
	}
}

func (c *canvas) rect(sq nchess.Square) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := c.origin.X + col*c.sq
	y := c.origin.Y + row*c.sq
	return image.Rect(x, y, x+c.sq, y+c.sq)
}

func (c *canvas) center(sq nchess.Square) (float64, float64) {
	r := c.rect(sq)
	return float64(r.Min.X) + float64(c.sq)/2, float64(r.Min.Y) + float64(c.sq)/2
}

func (c *canvas) squares() {
	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			clr := lightSquare
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			imagedraw.Draw(c.img, c.rect(nchess.NewSquare(file, rank)), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func (c *canvas) pieces(board *nchess.Board) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, c.sq)
		if err != nil {
			return err
		}
		imagedraw.Draw(c.img, c.rect(sq), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func (c *canvas) outline(sq nchess.Square, width int, clr color.Color) {
	r := c.rect(sq)
	fill := image.NewUniform(clr)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		imagedraw.Draw(c.img, edge, fill, image.Point{}, imagedraw.Over)
	}
}

func (c *canvas) disc(x, y, radius float64, clr color.Color) {
	c.filler.Clear()
	c.filler.SetColor(clr)
	rasterx.AddCircle(x, y, radius, c.filler)
	c.filler.Draw()
}

func (c *canvas) polygon(clr color.Color, pts ...[2]float64) {
	if len(pts) < 3 {
		return
	}
	c.filler.Clear()
	c.filler.SetColor(clr)
	c.filler.Start(toFixed(pts[0]))
	for _, p := range pts[1:] {
		c.filler.Line(toFixed(p))
	}
	c.filler.Stop(true)
	c.filler.Draw()
}

func toFixed(p [2]float64) fixed.Point26_6 {
	return fixed.Point26_6{X: fixed.Int26_6(p[0] * 64), Y: fixed.Int26_6(p[1] * 64)}
}

// arrow draws a shaft with a triangular head from the centre of one square to the
// centre of another, with a dot on each end.
func (c *canvas) arrow(from, to nchess.Square, clr color.Color) {
	if from == to {
		return
	}
	x0, y0 := c.center(from)
	x1, y1 := c.center(to)
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	ux, uy := dx/length, dy/length
	px, py := -uy, ux

	sq := float64(c.sq)
	half := sq * 0.07
	head := sq * 0.22
	bx, by := x1-ux*sq*0.35, y1-uy*sq*0.35

	c.polygon(clr,
		[2]float64{x0 + px*half, y0 + py*half},
		[2]float64{bx + px*half, by + py*half},
		[2]float64{bx - px*half, by - py*half},
		[2]float64{x0 - px*half, y0 - py*half},
	)
	c.polygon(clr,
		[2]float64{bx + px*head, by + py*head},
		[2]float64{x1, y1},
		[2]float64{bx - px*head, by - py*head},
	)
	c.disc(x0, y0, sq/8, clr)
	c.disc(x1, y1, sq/8, bestMoveEnd)
}

func (c *canvas) evalBar(share float64) {
	if share < 0 {
		share = 0
	}
	if share > 1 {
		share = 1
	}
	height := c.sq * 8
	x := (leftMargin - evalBarWidth) / 2
	bar := image.Rect(x, c.origin.Y, x+evalBarWidth, c.origin.Y+height)
	imagedraw.Draw(c.img, bar, image.NewUniform(evalBlack), image.Point{}, imagedraw.Src)
	white := int(math.Round(share * float64(height)))
	imagedraw.Draw(c.img, image.Rect(bar.Min.X, bar.Max.Y-white, bar.Max.X, bar.Max.Y), image.NewUniform(evalWhite), image.Point{}, imagedraw.Src)
	mid := bar.Min.Y + height/2
	imagedraw.Draw(c.img, image.Rect(bar.Min.X, mid, bar.Max.X, mid+1), image.NewUniform(color.RGBA{128, 128, 128, 255}), image.Point{}, imagedraw.Src)
}

func (c *canvas) text(s string, x, baseline int) {
	d := &font.Drawer{Dst: c.img, Src: image.NewUniform(labelColor), Face: c.face, Dot: fixed.P(x, baseline)}
	d.DrawString(s)
}

func (c *canvas) header(title, status string) {
	line := strings.TrimSpace(title)
	if s := strings.TrimSpace(status); s != "" {
		if line != "" {
			line += "  |  "
		}
		line += s
	}
	if line == "" {
		return
	}
	c.text(line, c.origin.X, topMargin/2+5)
}

// labels puts files under the board and ranks to its right.
func (c *canvas) labels() {
	ascent := c.face.Metrics().Ascent.Ceil()
	bottom := c.origin.Y + 8*c.sq
	for i, file := range boardFiles {
		x := c.origin.X + i*c.sq + 5
		c.text(file.String(), x, bottom+5+ascent)
	}
	right := c.origin.X + 8*c.sq
	for i, rank := range boardRanks {
		y := c.origin.Y + i*c.sq + 5 + ascent
		c.text(rank.String(), right+8, y)
	}
}
