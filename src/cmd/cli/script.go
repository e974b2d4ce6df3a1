package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"snip/src/annotation"
	"snip/src/config"
	"snip/src/geometry"
)

// Script is a list of shapes to draw, in order, on top of an image.
//
//	style:
//	  color: "#FF0000"
//	  line_width: 3
//	shapes:
//	  - tool: arrow
//	    points: [[10, 10], [120, 80]]
//	  - tool: text
//	    points: [[20, 100]]
//	    text: look here
type Script struct {
	Style  *ScriptStyle  `yaml:"style"`
	Shapes []ScriptShape `yaml:"shapes"`
}

type ScriptStyle struct {
	Color     string  `yaml:"color"`
	LineWidth float64 `yaml:"line_width"`
	FontSize  float64 `yaml:"font_size"`
}

type ScriptShape struct {
	Tool   string       `yaml:"tool"`
	Points [][2]float64 `yaml:"points"`
	Text   string       `yaml:"text"`
	// Per-shape overrides of the script style.
	ScriptStyle `yaml:",inline"`
}

var errEmptyScript = errors.New("script has no shapes")

func readScript(path string) (*Script, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return parseScript(data)
}

func parseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(s.Shapes) == 0 {
		return nil, errEmptyScript
	}
	return &s, nil
}

// merge overlays the non-zero fields of o onto base.
func (o ScriptStyle) merge(base annotation.Style) (annotation.Style, error) {
	if o.Color != "" {
		c, err := config.ParseHexColor(o.Color)
		if err != nil {
			return base, err
		}
		base.Color = c
	}
	if o.LineWidth > 0 {
		base.LineWidth = o.LineWidth
	}
	if o.FontSize > 0 {
		base.FontSize = o.FontSize
	}
	return base, nil
}

// apply drafts and commits every shape through the engine, so scripted
// shapes follow the same degenerate-shape rules as drawn ones. It returns
// the number of committed shapes.
func (s *Script) apply(engine *annotation.Engine) (int, error) {
	base := engine.Style()
	if s.Style != nil {
		var err error
		if base, err = s.Style.merge(base); err != nil {
			return 0, fmt.Errorf("style: %w", err)
		}
	}
	for i, sh := range s.Shapes {
		tool, err := annotation.ParseTool(sh.Tool)
		if err != nil {
			return engine.Len(), fmt.Errorf("shape %d: %w", i+1, err)
		}
		if len(sh.Points) == 0 {
			return engine.Len(), fmt.Errorf("shape %d: no points", i+1)
		}
		style, err := sh.ScriptStyle.merge(base)
		if err != nil {
			return engine.Len(), fmt.Errorf("shape %d: %w", i+1, err)
		}
		engine.SetStyle(style)

		first := geometry.Pt(sh.Points[0][0], sh.Points[0][1])
		if err := engine.BeginDraft(tool, first); err != nil {
			return engine.Len(), fmt.Errorf("shape %d: %w", i+1, err)
		}
		for _, p := range sh.Points[1:] {
			engine.UpdateDraft(geometry.Pt(p[0], p[1]))
		}
		for _, r := range sh.Text {
			engine.AppendText(r)
		}
		if !engine.CommitDraft() {
			fmt.Fprintf(os.Stderr, "skipping degenerate shape %d (%s)\n", i+1, tool)
		}
	}
	engine.SetStyle(base)
	return engine.Len(), nil
}
