// Package card renders the shareable PNG member card. The pipeline is
// deterministic given identical inputs except for the background
// choice, which comes from an injected random source.
package card

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/innercirclehq/innercircle/internal/members"
)

// Card dimensions, landscape.
const (
	Width  = 1200
	Height = 630
)

// Layout holds every fixed coordinate of the card so the design is
// configuration data rather than branching logic.
type Layout struct {
	PhotoX      float64
	PhotoY      float64
	PhotoRadius float64
	RingWidth   float64

	SunburstRadius float64

	TextX       float64
	NameY       float64
	NameSize    float64
	StatusY     float64
	StatusSize  float64
	NameMarginR float64

	BarHeight   float64
	BarDiagonal float64
	BarTextSize float64
}

// DefaultLayout mirrors the production card design.
var DefaultLayout = Layout{
	PhotoX:      260,
	PhotoY:      Height/2 - 20,
	PhotoRadius: 140,
	RingWidth:   14,

	SunburstRadius: 320,

	TextX:       480,
	NameY:       Height/2 - 40,
	NameSize:    72,
	StatusY:     Height/2 + 25,
	StatusSize:  28,
	NameMarginR: 250,

	BarHeight:   70,
	BarDiagonal: 80,
	BarTextSize: 22,
}

// PhotoFetcher retrieves the current profile photo bytes for a user.
// Implementations must bound their own timeouts; any error is treated
// as "no photo".
type PhotoFetcher interface {
	FetchLatestProfilePhoto(ctx context.Context, telegramID int64) ([]byte, error)
}

// Renderer produces member cards.
type Renderer struct {
	layout   Layout
	palettes []Palette
	photos   PhotoFetcher

	boldFont   *truetype.Font
	mediumFont *truetype.Font

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRenderer creates a card renderer. Fonts are loaded from assetsDir
// (SpaceGrotesk-Bold.ttf and Satoshi-Medium.ttf under fonts/); a
// missing file degrades to a built-in face rather than failing. photos
// may be nil, in which case every card uses the initials placeholder.
func NewRenderer(assetsDir string, photos PhotoFetcher, rng *rand.Rand) *Renderer {
	r := &Renderer{
		layout:   DefaultLayout,
		palettes: Palettes,
		photos:   photos,
		rng:      rng,
	}

	r.boldFont = loadFont(filepath.Join(assetsDir, "fonts", "SpaceGrotesk-Bold.ttf"))
	r.mediumFont = loadFont(filepath.Join(assetsDir, "fonts", "Satoshi-Medium.ttf"))

	return r
}

// Render draws the card for a member. inviterName may be empty; a
// missing profile photo or font never fails the render.
func (r *Renderer) Render(ctx context.Context, member *members.Member, inviterName string) ([]byte, error) {
	p := r.pickPalette()
	l := r.layout

	dc := gg.NewContext(Width, Height)
	dc.SetHexColor(p.Background)
	dc.Clear()

	decor := "#FFFFFF"
	decorAlpha := 0.08
	if p.Light {
		decor = "#000000"
		decorAlpha = 0.06
	}

	// Decorations sit below everything else.
	r.drawSunburst(dc, l.PhotoX, l.PhotoY, l.SunburstRadius, decor, decorAlpha, l.PhotoRadius+l.RingWidth+20)
	r.drawBrushStrokes(dc, decor, decorAlpha+0.04)
	r.drawLogo(dc, 35, 30, p.Primary)
	r.drawWordmark(dc, Width-35, 30, p.Primary)

	// Profile region: photo (or placeholder), then the ring on top.
	photo := r.fetchPhoto(ctx, member.TelegramID)
	r.drawProfile(dc, photo, member.DisplayName(), p)

	// Name with shrink-to-fit, then the status line.
	r.drawName(dc, member.DisplayName(), p)
	r.drawStatus(dc, statusLine(member, inviterName), p)

	r.drawBottomBar(dc, p, memberSince(member.JoinedAt))

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode card: %w", err)
	}
	return buf.Bytes(), nil
}

// statusLine picks the card subtitle: founding flag wins, then the
// inviter credit, then the plain fallback.
func statusLine(m *members.Member, inviterName string) string {
	switch {
	case m.IsFoundingMember:
		return "Founding Member"
	case inviterName != "":
		return "Invited by " + inviterName
	default:
		return "Member"
	}
}

func (r *Renderer) pickPalette() Palette {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.palettes[r.rng.Intn(len(r.palettes))]
}

func (r *Renderer) fetchPhoto(ctx context.Context, telegramID int64) image.Image {
	if r.photos == nil {
		return nil
	}

	raw, err := r.photos.FetchLatestProfilePhoto(ctx, telegramID)
	if err != nil {
		log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("Failed to fetch profile photo")
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("Failed to decode profile photo")
		return nil
	}
	return img
}

// drawSunburst draws radial lines from a center, leaving a hole for
// the profile photo.
func (r *Renderer) drawSunburst(dc *gg.Context, cx, cy, radius float64, hex string, alpha, holeRadius float64) {
	dc.Push()
	setHexAlpha(dc, hex, alpha)
	dc.SetLineWidth(12)
	dc.SetLineCapRound()

	const numLines = 24
	inner := math.Max(radius*0.35, holeRadius)

	for i := 0; i < numLines; i++ {
		angle := float64(i) * 2 * math.Pi / numLines
		x1 := cx + math.Cos(angle)*inner
		y1 := cy + math.Sin(angle)*inner
		x2 := cx + math.Cos(angle)*radius
		y2 := cy + math.Sin(angle)*radius
		dc.DrawLine(x1, y1, x2, y2)
	}
	dc.Stroke()
	dc.Pop()
}

// drawBrushStrokes draws the diagonal decorative strokes on the right.
func (r *Renderer) drawBrushStrokes(dc *gg.Context, hex string, alpha float64) {
	dc.Push()
	setHexAlpha(dc, hex, alpha)
	dc.SetLineWidth(14)
	dc.SetLineCapRound()

	strokes := [][4]float64{
		{Width - 200, 80, Width - 100, 200},
		{Width - 170, 110, Width - 70, 230},
		{Width - 140, 140, Width - 40, 260},
		{Width - 110, 170, Width - 10, 290},
		{Width - 180, 280, Width - 60, 420},
		{Width - 150, 310, Width - 30, 450},
		{Width - 120, 340, Width, 480},
	}
	for _, s := range strokes {
		dc.DrawLine(s[0], s[1], s[2], s[3])
	}
	dc.Stroke()
	dc.Pop()
}

// setHexAlpha sets the draw color from a hex string with an explicit
// alpha, since gg's SetHexColor is opaque-only for 6-digit values.
func setHexAlpha(dc *gg.Context, hex string, alpha float64) {
	hex = strings.TrimPrefix(hex, "#")
	var cr, cg, cb int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &cr, &cg, &cb); err != nil {
		dc.SetRGBA(1, 1, 1, alpha)
		return
	}
	dc.SetRGBA(float64(cr)/255, float64(cg)/255, float64(cb)/255, alpha)
}

// drawLogo draws the stylized mark top-left: a slashed stem and a ring.
func (r *Renderer) drawLogo(dc *gg.Context, x, y float64, hex string) {
	dc.SetHexColor(hex)

	const height = 42.0
	const stem = 12.0

	dc.DrawRectangle(x, y, stem, height*0.35)
	dc.Fill()
	dc.DrawRectangle(x+8, y+height*0.55, stem, height*0.45)
	dc.Fill()

	// Diagonal connector between the two stem halves.
	dc.MoveTo(x+stem, y+height*0.35)
	dc.LineTo(x+stem+8, y+height*0.35)
	dc.LineTo(x+8, y+height*0.55)
	dc.LineTo(x, y+height*0.55)
	dc.ClosePath()
	dc.Fill()

	dc.DrawCircle(x+50, y+height/2, 17)
	dc.SetLineWidth(7)
	dc.Stroke()
}

// drawWordmark draws the stacked letter-spaced wordmark top-right.
func (r *Renderer) drawWordmark(dc *gg.Context, x, y float64, hex string) {
	dc.SetHexColor(hex)
	dc.SetFontFace(r.face(r.boldFont, 18))
	dc.DrawStringAnchored("I N N E R", x, y+9, 1, 0.5)
	dc.DrawStringAnchored("C I R C L E", x, y+31, 1, 0.5)
}

// drawProfile renders the circular photo region and its ring. With no
// photo it falls back to a translucent fill with the member's initials.
func (r *Renderer) drawProfile(dc *gg.Context, photo image.Image, displayName string, p Palette) {
	l := r.layout
	cx, cy, radius := l.PhotoX, l.PhotoY, l.PhotoRadius

	if photo != nil {
		dc.Push()
		dc.DrawCircle(cx, cy, radius)
		dc.Clip()

		// Scale the photo to cover the circle, centered.
		bounds := photo.Bounds()
		side := math.Min(float64(bounds.Dx()), float64(bounds.Dy()))
		scale := (radius * 2) / side
		dc.Translate(cx, cy)
		dc.Scale(scale, scale)
		dc.DrawImageAnchored(photo, 0, 0, 0.5, 0.5)

		dc.Pop()
		dc.ResetClip()
	} else {
		if p.Light {
			dc.SetRGBA(0, 0, 0, 0.2)
		} else {
			dc.SetRGBA(0, 0, 0, 0.35)
		}
		dc.DrawCircle(cx, cy, radius)
		dc.Fill()

		if p.Light {
			dc.SetRGBA(0, 0, 0, 0.5)
		} else {
			dc.SetRGBA(1, 1, 1, 0.7)
		}
		dc.SetFontFace(r.face(r.boldFont, 80))
		dc.DrawStringAnchored(initials(displayName), cx, cy, 0.5, 0.5)
	}

	// Ring sits above the photo or placeholder.
	dc.SetHexColor("#FFFFFF")
	dc.SetLineWidth(l.RingWidth)
	dc.DrawCircle(cx, cy, radius+l.RingWidth/2)
	dc.Stroke()
}

func (r *Renderer) drawName(dc *gg.Context, name string, p Palette) {
	l := r.layout

	dc.SetHexColor(p.Primary)
	dc.SetFontFace(r.face(r.boldFont, l.NameSize))

	maxWidth := Width - l.TextX - l.NameMarginR
	fitted := fitText(func(s string) float64 {
		w, _ := dc.MeasureString(s)
		return w
	}, name, maxWidth)

	dc.DrawStringAnchored(fitted, l.TextX, l.NameY, 0, 0.5)
}

func (r *Renderer) drawStatus(dc *gg.Context, status string, p Palette) {
	l := r.layout

	dc.SetHexColor(p.Primary)
	dc.SetFontFace(r.face(r.mediumFont, l.StatusSize))
	dc.DrawStringAnchored(status, l.TextX, l.StatusY, 0, 0.5)
}

// drawBottomBar draws the split bar with the diagonal divider, the
// "Member Since" caption on the colored half and the call to action on
// the white half.
func (r *Renderer) drawBottomBar(dc *gg.Context, p Palette, since string) {
	l := r.layout
	barY := Height - l.BarHeight

	// Colored section, left, with the diagonal edge.
	dc.SetHexColor(p.Background)
	dc.MoveTo(0, barY)
	dc.LineTo(Width*0.5+l.BarDiagonal, barY)
	dc.LineTo(Width*0.5-l.BarDiagonal, Height)
	dc.LineTo(0, Height)
	dc.ClosePath()
	dc.Fill()

	// White section, right.
	dc.SetHexColor("#FFFFFF")
	dc.MoveTo(Width*0.5+l.BarDiagonal, barY)
	dc.LineTo(Width, barY)
	dc.LineTo(Width, Height)
	dc.LineTo(Width*0.5-l.BarDiagonal, Height)
	dc.ClosePath()
	dc.Fill()

	midY := barY + l.BarHeight/2

	r.drawSunburst(dc, 55, midY, 18, p.BottomBar, 1, 0)

	dc.SetHexColor(p.BottomBar)
	dc.SetFontFace(r.face(r.mediumFont, l.BarTextSize))
	dc.DrawStringAnchored("Member Since "+since, 90, midY, 0, 0.5)

	dc.SetHexColor(p.Accent)
	dc.DrawStringAnchored("Want In? Ask Me For An Invite!", Width-45, midY, 1, 0.5)
}

// face returns a font.Face at the given size, or the built-in face
// when the truetype font failed to load.
func (r *Renderer) face(f *truetype.Font, size float64) font.Face {
	if f == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(f, &truetype.Options{Size: size})
}

// loadFont parses a TTF file, returning nil (with a warning) when the
// asset is missing or unreadable so rendering can degrade gracefully.
func loadFont(path string) *truetype.Font {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Font asset unavailable, using fallback face")
		return nil
	}

	f, err := truetype.Parse(raw)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to parse font, using fallback face")
		return nil
	}
	return f
}
