package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vanderheijden86/orbview/pkg/metrics"
	"github.com/vanderheijden86/orbview/pkg/model"
	"github.com/vanderheijden86/orbview/pkg/selection"
)

// Scene is the entity set a snapshot draws. *model.Model implements it.
type Scene interface {
	AllNodes() []model.Node
	AllRegions() []model.Region
	SphereRadius() float64
}

// SnapshotOptions controls scene snapshot export behaviour.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string
	Preset string // "compact" (default) or "roomy"
	Width  int
	Height int

	Scene Scene
	State selection.State
	// PulseScale multiplies the active marker's radius; 0 means 1.
	PulseScale float64
}

// SaveSnapshot renders an orthographic view of the scene (SVG or PNG). The
// camera faces the active region when there is one.
func SaveSnapshot(opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotRender)()

	if opts.Scene == nil {
		return fmt.Errorf("no scene to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildSceneLayout(opts)

	switch format {
	case "svg":
		f, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		return renderSceneSVG(f, layout)
	default:
		return renderScenePNG(opts.Path, layout)
	}
}

// WriteSnapshotSVG renders the SVG form of the snapshot to w.
func WriteSnapshotSVG(w io.Writer, opts SnapshotOptions) error {
	if opts.Scene == nil {
		return fmt.Errorf("no scene to export")
	}
	return renderSceneSVG(w, buildSceneLayout(opts))
}

// --- layout ----------------------------------------------------------------

type marker struct {
	ID          string
	X, Y        float64
	R           float64
	Depth       float64 // toward the viewer
	Hidden      bool    // behind the globe
	Highlighted bool
	Active      bool
	Region      bool
}

type segment struct {
	X1, Y1, X2, Y2 float64
	Hidden         bool
}

type sceneLabel struct {
	Text   string
	X, Y   float64
	Hidden bool
}

type sceneLayout struct {
	Width, Height int
	Header        float64
	CX, CY        float64
	DiskR         float64
	Markers       []marker
	Segments      []segment
	Labels        []sceneLabel
	Summary       sceneSummary
}

type sceneSummary struct {
	Title       string
	Nodes       int
	Regions     int
	Highlighted int
	Active      string
}

// camera is an orthonormal basis with forward pointing at the viewer.
type camera struct {
	right, up, forward r3.Vec
}

func newCamera(facing r3.Vec) camera {
	if r3.Norm(facing) == 0 {
		facing = r3.Vec{Z: 1}
	}
	f := r3.Unit(facing)
	worldUp := r3.Vec{Y: 1}
	if math.Abs(r3.Dot(f, worldUp)) > 0.99 {
		worldUp = r3.Vec{X: 1}
	}
	right := r3.Unit(r3.Cross(worldUp, f))
	up := r3.Cross(f, right)
	return camera{right: right, up: up, forward: f}
}

func (c camera) project(p r3.Vec) (x, y, depth float64) {
	return r3.Dot(p, c.right), r3.Dot(p, c.up), r3.Dot(p, c.forward)
}

func buildSceneLayout(opts SnapshotOptions) sceneLayout {
	const (
		padding      = 36.0
		headerHeight = 120.0
		nodeRCompact = 4.0
		nodeRRoomy   = 6.0
	)
	nodeR := nodeRCompact
	if strings.EqualFold(opts.Preset, "roomy") {
		nodeR = nodeRRoomy
	}

	width, height := opts.Width, opts.Height
	if width < 480 {
		width = 900
	}
	if height < 480 {
		height = 900
	}

	nodes := opts.Scene.AllNodes()
	regions := opts.Scene.AllRegions()
	radius := opts.Scene.SphereRadius()

	var facing r3.Vec
	for _, r := range regions {
		if r.ID == opts.State.ActiveRegionID {
			facing = r.Position
		}
	}
	cam := newCamera(facing)

	extent := radius
	for _, n := range nodes {
		extent = math.Max(extent, r3.Norm(n.Position))
	}
	for _, c := range opts.State.Connectors {
		for _, p := range c.Path {
			extent = math.Max(extent, r3.Norm(p))
		}
	}
	extent *= 1.08

	avail := math.Min(float64(width)-2*padding, float64(height)-2*padding-headerHeight)
	scale := avail / (2 * extent)
	cx := float64(width) / 2
	cy := headerHeight + padding + avail/2
	diskR := radius * scale

	toScreen := func(p r3.Vec) (float64, float64, float64, bool) {
		x, y, d := cam.project(p)
		sx, sy := cx+x*scale, cy-y*scale
		hidden := d < 0 && math.Hypot(x, y) < radius
		return sx, sy, d, hidden
	}

	pulse := opts.PulseScale
	if pulse <= 0 {
		pulse = 1
	}

	var markers []marker
	for _, n := range nodes {
		x, y, d, hidden := toScreen(n.Position)
		markers = append(markers, marker{
			ID: n.ID, X: x, Y: y, R: nodeR, Depth: d, Hidden: hidden,
			Highlighted: opts.State.IsHighlighted(n.ID),
		})
	}
	for _, r := range regions {
		x, y, d, hidden := toScreen(r.Position)
		m := marker{ID: r.ID, X: x, Y: y, R: nodeR * 2, Depth: d, Hidden: hidden, Region: true}
		if opts.State.Active && r.ID == opts.State.ActiveRegionID {
			m.Active = true
			m.R *= pulse
		}
		markers = append(markers, m)
	}
	sortByDepth(markers)

	var segments []segment
	for _, c := range opts.State.Connectors {
		for i := 1; i < len(c.Path); i++ {
			x1, y1, _, _ := toScreen(c.Path[i-1])
			x2, y2, _, _ := toScreen(c.Path[i])
			_, _, _, hidden := toScreen(r3.Scale(0.5, r3.Add(c.Path[i-1], c.Path[i])))
			segments = append(segments, segment{X1: x1, Y1: y1, X2: x2, Y2: y2, Hidden: hidden})
		}
	}

	var labels []sceneLabel
	for _, l := range opts.State.Labels {
		x, y, _, hidden := toScreen(l.Position)
		labels = append(labels, sceneLabel{Text: l.Text, X: x + nodeR + 3, Y: y - nodeR - 3, Hidden: hidden})
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Coverage Snapshot"
	}
	active := "none"
	if opts.State.Active {
		active = opts.State.ActiveRegionID
	}

	return sceneLayout{
		Width:    width,
		Height:   height,
		Header:   headerHeight,
		CX:       cx,
		CY:       cy,
		DiskR:    diskR,
		Markers:  markers,
		Segments: segments,
		Labels:   labels,
		Summary: sceneSummary{
			Title:       title,
			Nodes:       len(nodes),
			Regions:     len(regions),
			Highlighted: len(opts.State.Highlighted),
			Active:      active,
		},
	}
}

// sortByDepth orders markers back to front, ties by id.
func sortByDepth(ms []marker) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Depth != ms[j].Depth {
			return ms[i].Depth < ms[j].Depth
		}
		return ms[i].ID < ms[j].ID
	})
}

// --- rendering -------------------------------------------------------------

var (
	colorBackdrop  = color.RGBA{0x0b, 0x10, 0x1a, 0xff}
	colorHeaderBG  = color.RGBA{0x16, 0x1d, 0x2b, 0xff}
	colorGlobe     = color.RGBA{0x1f, 0x4e, 0x79, 0xff}
	colorGlobeEdge = color.RGBA{0x5b, 0x8d, 0xbf, 0xff}
	colorNode      = color.RGBA{0xff, 0xff, 0x00, 0xff}
	colorHighlight = color.RGBA{0xff, 0x00, 0x00, 0xff}
	colorRegion    = color.RGBA{0x00, 0xff, 0x00, 0xff}
	colorConnector = color.RGBA{0x33, 0x66, 0xff, 0xff}
	colorText      = color.RGBA{0xee, 0xee, 0xee, 0xff}
	colorSubtle    = color.RGBA{0x99, 0xa3, 0xb3, 0xff}
	colorLegendBG  = color.RGBA{0x1c, 0x24, 0x33, 0xff}
)

const hiddenOpacity = 0.25

func markerColor(m marker) color.RGBA {
	switch {
	case m.Region:
		return colorRegion
	case m.Highlighted:
		return colorHighlight
	default:
		return colorNode
	}
}

func faded(c color.RGBA, hidden bool) color.RGBA {
	if !hidden {
		return c
	}
	c.A = uint8(float64(c.A) * hiddenOpacity)
	return c
}

func renderScenePNG(path string, layout sceneLayout) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawSceneSummary(dc, layout)
	drawSceneLegend(dc, layout)

	// back layer, globe, front layer
	for _, hidden := range []bool{true, false} {
		if !hidden {
			dc.SetColor(colorGlobe)
			dc.DrawCircle(layout.CX, layout.CY, layout.DiskR)
			dc.Fill()
			dc.SetColor(colorGlobeEdge)
			dc.SetLineWidth(1.5)
			dc.DrawCircle(layout.CX, layout.CY, layout.DiskR)
			dc.Stroke()
		}
		dc.SetColor(faded(colorConnector, hidden))
		dc.SetLineWidth(1.5)
		for _, s := range layout.Segments {
			if s.Hidden == hidden {
				dc.DrawLine(s.X1, s.Y1, s.X2, s.Y2)
				dc.Stroke()
			}
		}
		for _, m := range layout.Markers {
			if m.Hidden != hidden {
				continue
			}
			dc.SetColor(faded(markerColor(m), hidden))
			dc.DrawCircle(m.X, m.Y, m.R)
			dc.Fill()
			if m.Active {
				dc.SetColor(colorText)
				dc.SetLineWidth(1.2)
				dc.DrawCircle(m.X, m.Y, m.R)
				dc.Stroke()
			}
		}
		dc.SetColor(faded(colorText, hidden))
		for _, l := range layout.Labels {
			if l.Hidden == hidden {
				dc.DrawStringAnchored(l.Text, l.X, l.Y, 0, 0.5)
			}
		}
	}

	return dc.SavePNG(path)
}

func drawSceneSummary(dc *gg.Context, layout sceneLayout) {
	s := layout.Summary
	dc.SetColor(colorText)
	dc.DrawStringAnchored(s.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("satellites: %d  coverage areas: %d", s.Nodes, s.Regions), 32, 64, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("selected: %s", s.Active), 32, 84, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("covering satellites: %d", s.Highlighted), 32, 104, 0, 0.5)
}

func drawSceneLegend(dc *gg.Context, layout sceneLayout) {
	boxW := 180.0
	boxH := 80.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	for i, row := range legendRows {
		yy := y + 36 + float64(i)*16
		dc.SetColor(row.c)
		dc.DrawCircle(x+18, yy, 5)
		dc.Fill()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(row.label, x+30, yy, 0, 0.5)
	}
}

var legendRows = []struct {
	c     color.RGBA
	label string
}{
	{colorNode, "Satellite"},
	{colorHighlight, "Covering satellite"},
	{colorRegion, "Coverage area"},
}

func renderSceneSVG(w io.Writer, layout sceneLayout) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	s := layout.Summary
	canvas.Text(32, 44, s.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	sub := fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle))
	canvas.Text(32, 64, fmt.Sprintf("satellites: %d  coverage areas: %d", s.Nodes, s.Regions), sub)
	canvas.Text(32, 84, fmt.Sprintf("selected: %s", s.Active), sub)
	canvas.Text(32, 104, fmt.Sprintf("covering satellites: %d", s.Highlighted), sub)

	lx, ly := layout.Width-200, 24
	canvas.Roundrect(lx, ly, 180, 80, 10, 10, fmt.Sprintf("fill:%s", css(colorLegendBG)))
	canvas.Text(lx+12, ly+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, row := range legendRows {
		yy := ly + 36 + i*16
		canvas.Circle(lx+18, yy, 5, fmt.Sprintf("fill:%s", css(row.c)))
		canvas.Text(lx+30, yy+4, row.label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	for _, hidden := range []bool{true, false} {
		opacity := 1.0
		if hidden {
			opacity = hiddenOpacity
		} else {
			canvas.Circle(int(layout.CX), int(layout.CY), int(layout.DiskR),
				fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.5", css(colorGlobe), css(colorGlobeEdge)))
		}
		for _, seg := range layout.Segments {
			if seg.Hidden == hidden {
				canvas.Line(int(seg.X1), int(seg.Y1), int(seg.X2), int(seg.Y2),
					fmt.Sprintf("stroke:%s;stroke-width:1.5;stroke-opacity:%.2f", css(colorConnector), opacity))
			}
		}
		for _, m := range layout.Markers {
			if m.Hidden != hidden {
				continue
			}
			style := fmt.Sprintf("fill:%s;fill-opacity:%.2f", css(markerColor(m)), opacity)
			if m.Active {
				style += fmt.Sprintf(";stroke:%s;stroke-width:1.2", css(colorText))
			}
			canvas.Circle(int(m.X), int(m.Y), int(math.Round(m.R)), style)
		}
		for _, l := range layout.Labels {
			if l.Hidden == hidden {
				canvas.Text(int(l.X), int(l.Y), l.Text,
					fmt.Sprintf("fill:%s;fill-opacity:%.2f;font-size:11px;font-family:monospace", css(colorText), opacity))
			}
		}
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
