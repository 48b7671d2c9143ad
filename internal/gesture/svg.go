package gesture

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// SVGRenderer writes each rendered overlay as a standalone SVG document.
type SVGRenderer struct {
	w      io.Writer
	b      strings.Builder
	defs   strings.Builder
	nextID int
}

func NewSVGRenderer(w io.Writer) *SVGRenderer {
	return &SVGRenderer{w: w}
}

func (s *SVGRenderer) Begin(width, height float64) {
	s.b.Reset()
	s.defs.Reset()
	s.nextID = 0
	fmt.Fprintf(&s.b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(width), num(height), num(width), num(height))
	s.b.WriteByte('\n')
}

func (s *SVGRenderer) Heart(t Transform, fill Color, opacity float64, glow Glow) {
	id := s.id("glow")
	fmt.Fprintf(&s.defs, `<filter id="%s" x="-100%%" y="-100%%" width="300%%" height="300%%"><feDropShadow dx="0" dy="0" stdDeviation="%s" flood-color="%s" flood-opacity="%s"/></filter>`,
		id, num(glow.Blur/2/t.Scale), rgb(glow.Color), num(glow.Color.A))
	s.defs.WriteByte('\n')
	fmt.Fprintf(&s.b, `<path d="%s" transform="%s" fill="%s" fill-opacity="%s" opacity="%s" filter="url(#%s)"/>`,
		HeartPath, transform(t), rgb(fill), num(fill.A), num(opacity), id)
	s.b.WriteByte('\n')
}

func (s *SVGRenderer) GradientHeart(t Transform, g RadialGradient) {
	id := s.id("heart")
	fmt.Fprintf(&s.defs, `<radialGradient id="%s" gradientUnits="userSpaceOnUse" cx="%s" cy="%s" r="%s">`, id, num(g.CX), num(g.CY), num(g.R))
	for _, stop := range g.Stops {
		fmt.Fprintf(&s.defs, `<stop offset="%s" stop-color="%s" stop-opacity="%s"/>`, num(stop.Offset), rgb(stop.Color), num(stop.Color.A))
	}
	s.defs.WriteString("</radialGradient>\n")
	fmt.Fprintf(&s.b, `<path d="%s" transform="%s" fill="url(#%s)"/>`, HeartPath, transform(t), id)
	s.b.WriteByte('\n')
}

func (s *SVGRenderer) Ellipse(t Transform, cx, cy, rx, ry, rotation float64, fill Color) {
	fmt.Fprintf(&s.b, `<ellipse cx="%s" cy="%s" rx="%s" ry="%s" transform="%s rotate(%s %s %s)" fill="%s" fill-opacity="%s"/>`,
		num(cx), num(cy), num(rx), num(ry), transform(t), num(rotation*180/math.Pi), num(cx), num(cy), rgb(fill), num(fill.A))
	s.b.WriteByte('\n')
}

func (s *SVGRenderer) Circle(cx, cy, r float64, fill Color) {
	fmt.Fprintf(&s.b, `<circle cx="%s" cy="%s" r="%s" fill="%s" fill-opacity="%s"/>`, num(cx), num(cy), num(r), rgb(fill), num(fill.A))
	s.b.WriteByte('\n')
}

func (s *SVGRenderer) End() error {
	var doc strings.Builder
	body := s.b.String()
	head, rest, _ := strings.Cut(body, "\n")
	doc.WriteString(head)
	doc.WriteByte('\n')
	if s.defs.Len() > 0 {
		doc.WriteString("<defs>\n")
		doc.WriteString(s.defs.String())
		doc.WriteString("</defs>\n")
	}
	doc.WriteString(rest)
	doc.WriteString("</svg>\n")
	_, err := io.WriteString(s.w, doc.String())
	return err
}

func (s *SVGRenderer) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s%d", prefix, s.nextID)
}

func transform(t Transform) string {
	return fmt.Sprintf("translate(%s %s) scale(%s)", num(t.TX), num(t.TY), num(t.Scale))
}

func rgb(c Color) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

func num(f float64) string {
	s := fmt.Sprintf("%.3f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
