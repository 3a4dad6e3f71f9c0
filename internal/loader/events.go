package loader

import (
	"strings"

	"github.com/keshon/commandhub/internal/unit"

	"gopkg.in/yaml.v3"
)

type eventDoc struct {
	Name    string `yaml:"name"`
	Once    bool   `yaml:"once"`
	Handler string `yaml:"handler"`
}

// Events returns the event variant. A unit needs a name and a resolvable
// execution body.
func Events(catalog *unit.Catalog) Variant[*unit.Event] {
	return Variant[*unit.Event]{
		Kind: KindEvent,
		Parse: func(f File) (*unit.Event, string, error) {
			var doc eventDoc
			if err := yaml.Unmarshal(f.Data, &doc); err != nil {
				return nil, "", invalid(KindEvent, f, "decode: %v", err)
			}
			name := strings.TrimSpace(doc.Name)
			if name == "" {
				return nil, "", invalid(KindEvent, f, "missing name")
			}
			handler := strings.TrimSpace(doc.Handler)
			if handler == "" {
				handler = name
			}
			exec, ok := catalog.LookupEvent(handler)
			if !ok {
				return nil, "", invalid(KindEvent, f, "missing execute: no event handler %q", handler)
			}
			return &unit.Event{
				Name:     name,
				Once:     doc.Once,
				Handler:  handler,
				Category: f.Category,
				Path:     f.Path,
				ModTime:  f.ModTime,
				Execute:  exec,
			}, name, nil
		},
	}
}
