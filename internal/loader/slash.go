package loader

import (
	"encoding/json"
	"strings"

	"github.com/keshon/commandhub/internal/unit"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/yaml.v3"
)

type slashDoc struct {
	commandDoc `yaml:",inline"`
	Data       map[string]any `yaml:"data"`
}

// Slash returns the remote command variant. The data block is the
// platform's own wire shape and is decoded straight into an
// ApplicationCommand.
func Slash(catalog *unit.Catalog) Variant[*unit.Slash] {
	return Variant[*unit.Slash]{
		Kind: KindSlash,
		Parse: func(f File) (*unit.Slash, string, error) {
			var doc slashDoc
			if err := yaml.Unmarshal(f.Data, &doc); err != nil {
				return nil, "", invalid(KindSlash, f, "decode: %v", err)
			}
			if doc.Data == nil {
				return nil, "", invalid(KindSlash, f, "missing data")
			}

			raw, err := json.Marshal(doc.Data)
			if err != nil {
				return nil, "", invalid(KindSlash, f, "data: %v", err)
			}
			var def discordgo.ApplicationCommand
			if err := json.Unmarshal(raw, &def); err != nil {
				return nil, "", invalid(KindSlash, f, "data: %v", err)
			}
			def.Name = strings.TrimSpace(def.Name)
			if def.Name == "" {
				return nil, "", invalid(KindSlash, f, "missing data.name")
			}
			if strings.TrimSpace(def.Description) == "" {
				return nil, "", invalid(KindSlash, f, "missing data.description")
			}
			if def.Type == 0 {
				def.Type = discordgo.ChatApplicationCommand
			}

			cmd, err := buildCommand(KindSlash, f, catalog, doc.commandDoc, def.Name)
			if err != nil {
				return nil, "", err
			}
			cmd.Description = def.Description
			return &unit.Slash{Command: cmd, Definition: &def}, def.Name, nil
		},
	}
}
