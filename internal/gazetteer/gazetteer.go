// Package gazetteer maps Greek place names onto their administrative context
// (municipality, regional unit, region) from an embedded table.
package gazetteer

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

//go:embed municipalities.yaml
var embedded []byte

// Entry is the administrative context of a place. Municipality is empty when
// the name matched a regional unit or region.
type Entry struct {
	Municipality string
	RegionalUnit string
	Region       string
}

type document struct {
	Regions []struct {
		Name  string `yaml:"name"`
		Units []struct {
			Name           string `yaml:"name"`
			Municipalities []struct {
				Name    string   `yaml:"name"`
				Aliases []string `yaml:"aliases"`
			} `yaml:"municipalities"`
		} `yaml:"units"`
	} `yaml:"regions"`
}

// Gazetteer is an immutable lookup table keyed by folded name.
type Gazetteer struct {
	byName map[string]Entry
}

// Prefixes dropped before lookup ("Δήμος Αχαρνών" -> "Αχαρνών").
var prefixes = []string{"δημοσ ", "δ. ", "δ.", "περιοχη ", "περιφερειακη ενοτητα ", "π.ε. ", "περιφερεια "}

// Parse builds a Gazetteer from YAML. Municipalities and their aliases take
// precedence over regional units, which take precedence over regions, when
// folded names collide.
func Parse(data []byte) (*Gazetteer, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}

	g := &Gazetteer{byName: make(map[string]Entry)}
	for _, r := range doc.Regions {
		for _, u := range r.Units {
			for _, m := range u.Municipalities {
				e := Entry{Municipality: m.Name, RegionalUnit: u.Name, Region: r.Name}
				g.add(m.Name, e)
				for _, a := range m.Aliases {
					g.add(a, e)
				}
			}
		}
	}
	for _, r := range doc.Regions {
		for _, u := range r.Units {
			g.add(u.Name, Entry{RegionalUnit: u.Name, Region: r.Name})
		}
	}
	for _, r := range doc.Regions {
		g.add(r.Name, Entry{Region: r.Name})
	}

	if len(g.byName) == 0 {
		return nil, fmt.Errorf("parse gazetteer: no entries")
	}
	return g, nil
}

func (g *Gazetteer) add(name string, e Entry) {
	key := normalize(name)
	if key == "" {
		return
	}
	if _, exists := g.byName[key]; !exists {
		g.byName[key] = e
	}
}

// Lookup matches a place name accent- and case-insensitively, ignoring
// administrative prefixes and a leading hashtag.
func (g *Gazetteer) Lookup(name string) (Entry, bool) {
	e, ok := g.byName[normalize(name)]
	return e, ok
}

// Len reports the number of indexed names.
func (g *Gazetteer) Len() int { return len(g.byName) }

func normalize(name string) string {
	f := domain.Fold(strings.TrimPrefix(strings.TrimSpace(name), "#"))
	f = strings.ReplaceAll(f, "_", " ")
	for _, p := range prefixes {
		if strings.HasPrefix(f, p) {
			f = strings.TrimSpace(strings.TrimPrefix(f, p))
			break
		}
	}
	return f
}

var (
	defaultOnce sync.Once
	defaultG    *Gazetteer
	defaultErr  error
)

// Default returns the gazetteer built from the embedded table.
func Default() (*Gazetteer, error) {
	defaultOnce.Do(func() {
		defaultG, defaultErr = Parse(embedded)
	})
	return defaultG, defaultErr
}
