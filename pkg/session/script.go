package session

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jpfielding/ctlabels.go/pkg/brush"
	"github.com/jpfielding/ctlabels.go/pkg/edit"
	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/jpfielding/ctlabels.go/pkg/volume"
	"gopkg.in/yaml.v3"
)

// Script is a recorded series of interactions replayed against a session.
//
//	labels:
//	  - {name: liver, color: red}
//	steps:
//	  - {label: liver, mode: draw, brush: {size: 5, shape: square}}
//	  - {slice: 12, stroke: [[40, 40], [41, 40], [42, 41]]}
//	  - {keys: "ww"}
//	  - {fill: true}
type Script struct {
	Labels []ScriptLabel `yaml:"labels"`
	Steps  []Step        `yaml:"steps"`
}

type ScriptLabel struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// Step is one scripted interaction. Set fields apply in declaration order.
type Step struct {
	Label string `yaml:"label,omitempty"`
	Mode  string `yaml:"mode,omitempty"`
	Brush *struct {
		Size  int    `yaml:"size"`
		Shape string `yaml:"shape"`
	} `yaml:"brush,omitempty"`
	Plane string `yaml:"plane,omitempty"`
	Slice *int   `yaml:"slice,omitempty"`
	// Stroke is a press at the first point, drags through the rest and a release.
	Stroke         [][2]int `yaml:"stroke,omitempty"`
	Keys           string   `yaml:"keys,omitempty"`
	Fill           bool     `yaml:"fill,omitempty"`
	RemoveOutliers bool     `yaml:"removeOutliers,omitempty"`
}

// ParseScript decodes a YAML script, rejecting unknown fields.
func ParseScript(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sc Script
	if err := dec.Decode(&sc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	return &sc, nil
}

// ReadScript loads a script file.
func ReadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseScript(f)
}

// Replay adds missing labels and runs every step. It stops at the first
// failing step; steps before it stay applied.
func (sc *Script) Replay(ctx context.Context, s *Session) error {
	for _, l := range sc.Labels {
		if s.Store.Labels().Has(l.Name) {
			continue
		}
		c := labels.NextColor(s.Store.Labels().Len())
		if l.Color != "" {
			var err error
			if c, err = labels.ParseColor(l.Color); err != nil {
				return fmt.Errorf("label %s: %w", l.Name, err)
			}
		}
		if _, err := s.AddLabel(l.Name, int(c.R), int(c.G), int(c.B)); err != nil {
			return err
		}
	}
	for i, st := range sc.Steps {
		if err := st.apply(ctx, s); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (st Step) apply(ctx context.Context, s *Session) error {
	if st.Label != "" {
		if err := s.SelectLabel(st.Label); err != nil {
			return err
		}
	}
	if st.Mode != "" {
		m, err := edit.ParseMode(st.Mode)
		if err != nil {
			return err
		}
		s.SetMode(m)
	}
	if st.Brush != nil {
		shape := brush.DefaultShape
		if st.Brush.Shape != "" {
			var err error
			if shape, err = brush.ParseShape(st.Brush.Shape); err != nil {
				return err
			}
		}
		if err := s.SetBrush(st.Brush.Size, shape); err != nil {
			return err
		}
	}
	plane := volume.Axial
	if st.Plane != "" {
		p, err := volume.ParsePlane(st.Plane)
		if err != nil {
			return err
		}
		plane = p
	}
	if st.Slice != nil {
		s.View.Index[plane] = *st.Slice
	}
	if len(st.Stroke) > 0 {
		first := st.Stroke[0]
		if _, err := s.PointerDown(plane, first[0], first[1]); err != nil {
			return err
		}
		for _, pt := range st.Stroke[1:] {
			s.PointerMove(pt[0], pt[1])
		}
		if _, err := s.PointerUp(); err != nil {
			return err
		}
	}
	for _, k := range st.Keys {
		if _, err := s.HandleKey(ctx, edit.Key(k)); err != nil {
			return err
		}
	}
	if st.Fill {
		if err := s.FillHoles(); err != nil {
			return err
		}
	}
	if st.RemoveOutliers {
		if err := s.RemoveOutliersSelected(); err != nil {
			return err
		}
	}
	return nil
}
