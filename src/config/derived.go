package config

import (
	"time"

	"snip/src/annotation"
	"snip/src/geometry"
	"snip/src/render"
)

// AnnotationStyle is the style new shapes start with.
func (c *Config) AnnotationStyle() annotation.Style {
	st := annotation.DefaultStyle()
	if col, err := ParseHexColor(c.Annotation.DefaultColor); err == nil {
		st.Color = col
	}
	if c.Annotation.DefaultLineWidth > 0 {
		st.LineWidth = c.Annotation.DefaultLineWidth
	}
	if c.Annotation.FontSize > 0 {
		st.FontSize = c.Annotation.FontSize
	}
	return st
}

// RenderOptions is the pin window decoration.
func (c *Config) RenderOptions() render.Options {
	opts := render.Options{BorderWidth: c.Pin.BorderWidth}
	if col, err := ParseHexColor(c.Pin.BorderColor); err == nil {
		opts.BorderColor = col
	}
	return opts
}

// Transform returns a fresh view transform with the configured zoom bounds.
func (c *Config) Transform() geometry.Transform {
	return geometry.NewTransform(c.Pin.MinScale, c.Pin.MaxScale)
}

// ExternalTimeout bounds each helper process invocation.
func (c *Config) ExternalTimeout() time.Duration {
	if c.ExternalTimeoutSec <= 0 {
		return DefaultExternalTimeoutSec * time.Second
	}
	return time.Duration(c.ExternalTimeoutSec) * time.Second
}
