package chess

import (
	"fmt"
	"image"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// 말 모양은 100x100 viewBox 기준의 단순한 실루엣
var pieceShapes = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="50" cy="32" r="12"/>
<path d="M38 80 L43 50 L57 50 L62 80 Z"/>`,
	nchess.Rook: `<path d="M26 42 L26 20 L36 20 L36 28 L44 28 L44 20 L56 20 L56 28 L64 28 L64 20 L74 20 L74 42 Z"/>
<path d="M30 80 L33 42 L67 42 L70 80 Z"/>`,
	nchess.Knight: `<path d="M30 80 L34 60 L24 52 L28 40 L44 26 L48 12 L56 24 L70 38 L74 80 Z"/>`,
	nchess.Bishop: `<circle cx="50" cy="16" r="6"/>
<ellipse cx="50" cy="44" rx="15" ry="21"/>
<path d="M37 80 L43 62 L57 62 L63 80 Z"/>`,
	nchess.Queen: `<path d="M22 80 L16 28 L34 52 L42 20 L50 48 L58 20 L66 52 L84 28 L78 80 Z"/>
<circle cx="16" cy="26" r="5"/><circle cx="42" cy="18" r="5"/><circle cx="58" cy="18" r="5"/><circle cx="84" cy="26" r="5"/>`,
	nchess.King: `<rect x="45" y="8" width="10" height="30"/>
<rect x="36" y="16" width="28" height="9"/>
<path d="M26 80 L22 42 L78 42 L74 80 Z"/>`,
}

const pieceBase = `<rect x="20" y="80" width="60" height="11"/>`

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSVG(piece nchess.Piece) (string, error) {
	shape, ok := pieceShapes[piece.Type()]
	if !ok {
		return "", fmt.Errorf("no shape for piece %v", piece)
	}
	fill, stroke := "#f6f3ea", "#1d1d1d"
	if piece.Color() == nchess.Black {
		fill, stroke = "#2a2a2a", "#e4e0d6"
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">`)
	fmt.Fprintf(&b, `<g fill="%s" stroke="%s" stroke-width="3" stroke-linejoin="round">`, fill, stroke)
	b.WriteString(shape)
	b.WriteString(pieceBase)
	b.WriteString(`</g></svg>`)
	return b.String(), nil
}

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	svg, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	inset := float64(size) * 0.08
	icon.SetTarget(inset, inset, float64(size)-2*inset, float64(size)-2*inset)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
