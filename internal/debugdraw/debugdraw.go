// Package debugdraw renders match snapshots as collision-box overlays.
// It exists for tuning frame data, not for presenting the match.
package debugdraw

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"script-fighters/internal/config"
	"script-fighters/internal/game"
)

// Translucent fills need non-premultiplied colors.
var (
	background = color.NRGBA{12, 12, 28, 255}
	groundLine = color.NRGBA{60, 60, 80, 255}
	hurtColor  = color.NRGBA{83, 255, 69, 110}
	hitColor   = color.NRGBA{255, 60, 60, 150}
	pushColor  = color.NRGBA{80, 160, 255, 255}
	shotColor  = color.NRGBA{255, 200, 40, 180}
	textColor  = color.NRGBA{230, 230, 240, 255}
)

// Renderer draws snapshots onto a stage-sized canvas.
type Renderer struct {
	width, height int
	groundY       float64
}

// NewRenderer sizes the canvas from the stage configuration.
func NewRenderer(sim config.SimulationConfig) *Renderer {
	return &Renderer{
		width:   max(1, int(sim.StageWidth)),
		height:  max(1, int(sim.StageHeight)),
		groundY: sim.GroundY,
	}
}

// Render draws one snapshot. A nil snapshot yields an empty stage.
func (r *Renderer) Render(snap *game.MatchSnapshot) image.Image {
	return r.draw(snap).Image()
}

// WritePNG renders snap and encodes it as PNG.
func (r *Renderer) WritePNG(w io.Writer, snap *game.MatchSnapshot) error {
	return r.draw(snap).EncodePNG(w)
}

func (r *Renderer) draw(snap *game.MatchSnapshot) *gg.Context {
	dc := gg.NewContext(r.width, r.height)
	dc.SetColor(background)
	dc.Clear()

	if snap != nil {
		dc.Push()
		dc.Translate(snap.Cinematic.PanOffset, 0)
		r.drawStage(dc)
		for i := range snap.Fighters {
			drawFighter(dc, &snap.Fighters[i])
		}
		for _, p := range snap.Projectiles {
			dc.SetColor(shotColor)
			dc.DrawCircle(p.X, p.Y, p.Radius)
			dc.Fill()
		}
		dc.Pop()
		r.drawHUD(dc, snap)
	} else {
		r.drawStage(dc)
	}

	return dc
}

func (r *Renderer) drawStage(dc *gg.Context) {
	dc.SetColor(groundLine)
	dc.SetLineWidth(2)
	dc.DrawLine(0, r.groundY, float64(r.width), r.groundY)
	dc.Stroke()
}

func drawFighter(dc *gg.Context, f *game.FighterSnapshot) {
	for _, b := range f.Hurtboxes {
		fillRect(dc, b, hurtColor)
	}
	for _, b := range f.Hitboxes {
		fillRect(dc, b, hitColor)
	}

	dc.SetColor(pushColor)
	dc.SetLineWidth(1)
	dc.DrawRectangle(f.Pushbox.X, f.Pushbox.Y, f.Pushbox.W, f.Pushbox.H)
	dc.Stroke()

	// Origin cross
	dc.DrawLine(f.X-4, f.Y, f.X+4, f.Y)
	dc.DrawLine(f.X, f.Y-4, f.X, f.Y+4)
	dc.Stroke()

	label := f.Mode
	if f.MoveID != "" {
		label = fmt.Sprintf("%s %s", f.Mode, f.MoveID)
	}
	dc.SetColor(textColor)
	dc.DrawStringAnchored(label, f.X, f.Pushbox.Y-8, 0.5, 0)
}

func (r *Renderer) drawHUD(dc *gg.Context, snap *game.MatchSnapshot) {
	dc.SetColor(textColor)
	for i, f := range snap.Fighters {
		x, ax := 10.0, 0.0
		if i == 1 {
			x, ax = float64(r.width)-10, 1.0
		}
		dc.DrawStringAnchored(fmt.Sprintf("%s %d/%d  pow %d", f.Side, f.Health, f.MaxHealth, f.Power), x, 16, ax, 0)
	}

	status := fmt.Sprintf("tick %d", snap.Tick)
	if snap.Advantage.Visible() {
		status += fmt.Sprintf("  %s %+d", snap.Advantage.Side, snap.Advantage.Value)
	}
	if snap.Cinematic.Phase != game.PhaseIdle {
		status += "  " + snap.Cinematic.Phase.String()
	}
	dc.DrawStringAnchored(status, float64(r.width)/2, 16, 0.5, 0)
}

func fillRect(dc *gg.Context, b game.Rect, c color.Color) {
	dc.SetColor(c)
	dc.DrawRectangle(b.X, b.Y, b.W, b.H)
	dc.Fill()
}
