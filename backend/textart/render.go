// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package textart

import (
	"bytes"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// Cell metrics of basicfont.Face7x13, shared by the svg layout so
	// both raster and vector output have the same geometry.
	cellWidth  = 7
	cellHeight = 13
	margin     = 10
)

// width returns the widest of the title and the content lines, in
// columns.
func (d *document) width() int {
	widest := utf8.RuneCountInString(d.title)
	for _, line := range d.lines {
		widest = max(widest, utf8.RuneCountInString(line))
	}
	return widest
}

// framed returns the document as lines of text: the title, if any,
// followed by the content inside an ASCII frame.
func (d *document) framed() []string {
	width := d.width()
	border := "+" + strings.Repeat("-", width+2) + "+"

	var out []string
	if d.title != "" {
		out = append(out, d.title)
	}
	out = append(out, border)
	for _, line := range d.lines {
		padding := width - utf8.RuneCountInString(line)
		out = append(out, "| "+line+strings.Repeat(" ", padding)+" |")
	}
	return append(out, border)
}

func renderText(d *document) []byte {
	return []byte(strings.Join(d.framed(), "\n") + "\n")
}

func renderSVG(d *document) []byte {
	lines := d.framed()
	width := 2*margin + cellWidth*(d.width()+4)
	height := 2*margin + cellHeight*len(lines)

	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	buffer.WriteString("\n")
	fmt.Fprintf(&buffer, `<rect width="100%%" height="100%%" fill="white"/>`)
	buffer.WriteString("\n")
	fmt.Fprintf(&buffer, `<g font-family="monospace" font-size="%d" fill="black" xml:space="preserve">`, cellHeight-1)
	buffer.WriteString("\n")
	for index, line := range lines {
		y := margin + cellHeight*(index+1) - 3
		fmt.Fprintf(&buffer, `<text x="%d" y="%d">%s</text>`, margin, y, html.EscapeString(line))
		buffer.WriteString("\n")
	}
	buffer.WriteString("</g>\n</svg>\n")
	return buffer.Bytes()
}

func renderPNG(d *document) ([]byte, error) {
	lines := d.framed()
	width := 2*margin + cellWidth*(d.width()+4)
	height := 2*margin + cellHeight*len(lines)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	for index, line := range lines {
		drawer.Dot = fixed.Point26_6{
			X: fixed.I(margin),
			Y: fixed.I(margin + cellHeight*(index+1) - 3),
		}
		drawer.DrawString(line)
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buffer.Bytes(), nil
}
