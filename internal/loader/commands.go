package loader

import (
	"math"
	"strings"
	"time"

	"github.com/keshon/commandhub/internal/unit"

	"gopkg.in/yaml.v3"
)

const maxCooldownSeconds = math.MaxInt64 / int64(time.Second)

const (
	KindCommand = "command"
	KindEvent   = "event"
	KindSlash   = "slash"
)

// settingsDoc accepts both the current flag names and the legacy is* ones.
type settingsDoc struct {
	OwnerOnly  bool `yaml:"ownerOnly"`
	IsOwner    bool `yaml:"isOwner"`
	Beta       bool `yaml:"beta"`
	IsBeta     bool `yaml:"isBeta"`
	Disabled   bool `yaml:"disabled"`
	IsDisabled bool `yaml:"isDisabled"`
	Cooldown   *int `yaml:"cooldown"`
}

// commandDoc is the part shared by prefix and slash command files.
type commandDoc struct {
	Settings  settingsDoc `yaml:"settings"`
	Cooldown  *int        `yaml:"cooldown"`
	UserPerms []string    `yaml:"userPerms"`
	BotPerms  []string    `yaml:"botPerms"`
	Handler   string      `yaml:"handler"`
}

type prefixDoc struct {
	commandDoc  `yaml:",inline"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Aliases     []string `yaml:"aliases"`
}

// Commands returns the prefix command variant. Bodies are bound by handler
// name (defaulting to the command name) through catalog.
func Commands(catalog *unit.Catalog) Variant[*unit.Command] {
	return Variant[*unit.Command]{
		Kind: KindCommand,
		Parse: func(f File) (*unit.Command, string, error) {
			var doc prefixDoc
			if err := yaml.Unmarshal(f.Data, &doc); err != nil {
				return nil, "", invalid(KindCommand, f, "decode: %v", err)
			}
			name := strings.TrimSpace(doc.Name)
			if name == "" {
				return nil, "", invalid(KindCommand, f, "missing name")
			}
			cmd, err := buildCommand(KindCommand, f, catalog, doc.commandDoc, name)
			if err != nil {
				return nil, "", err
			}
			cmd.Description = doc.Description
			for _, a := range doc.Aliases {
				if a = strings.TrimSpace(a); a != "" {
					cmd.Aliases = append(cmd.Aliases, a)
				}
			}
			return cmd, name, nil
		},
	}
}

func buildCommand(kind string, f File, catalog *unit.Catalog, doc commandDoc, name string) (*unit.Command, error) {
	cooldown := doc.Cooldown
	if cooldown == nil {
		cooldown = doc.Settings.Cooldown
	}
	var cd time.Duration
	if cooldown != nil {
		if *cooldown < 0 {
			return nil, invalid(kind, f, "cooldown must be >= 0, got %d", *cooldown)
		}
		if int64(*cooldown) > maxCooldownSeconds {
			return nil, invalid(kind, f, "cooldown must be <= %d, got %d", maxCooldownSeconds, *cooldown)
		}
		cd = time.Duration(*cooldown) * time.Second
	}

	userPerms, err := unit.ParsePermissions(doc.UserPerms)
	if err != nil {
		return nil, invalid(kind, f, "userPerms: %v", err)
	}
	botPerms, err := unit.ParsePermissions(doc.BotPerms)
	if err != nil {
		return nil, invalid(kind, f, "botPerms: %v", err)
	}

	handler := strings.TrimSpace(doc.Handler)
	if handler == "" {
		handler = name
	}
	exec, ok := catalog.LookupCommand(handler)
	if !ok {
		return nil, invalid(kind, f, "no command handler %q", handler)
	}

	s := doc.Settings
	return &unit.Command{
		Name: name,
		Settings: unit.Settings{
			OwnerOnly: s.OwnerOnly || s.IsOwner,
			Beta:      s.Beta || s.IsBeta,
			Disabled:  s.Disabled || s.IsDisabled,
		},
		Cooldown:  cd,
		UserPerms: userPerms,
		BotPerms:  botPerms,
		Handler:   handler,
		Category:  f.Category,
		Path:      f.Path,
		ModTime:   f.ModTime,
		Execute:   exec,
	}, nil
}
