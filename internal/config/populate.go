package config

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"modulehost/internal/loader"
	"modulehost/internal/registry"
)

// Descriptor builds the registry descriptor for a launch module from its
// catalog section. A section declaring gui without a title is invalid.
func Descriptor(name string, section ModuleSection) registry.Descriptor {
	d := registry.Descriptor{
		Name:      name,
		Title:     strings.TrimSpace(section.Name),
		Version:   strings.TrimSpace(section.Version),
		Displayer: strings.TrimSpace(section.Displayer),
	}
	if d.Title == "" {
		if section.GUI {
			d.Status = registry.StatusInvalid
		} else {
			d.Status = registry.StatusHeadlessOnly
		}
		return d
	}

	d.Icon = strings.TrimSpace(section.Icon)
	d.Description = section.Description
	d.Library = loader.LibraryID(strings.TrimSpace(section.Library))
	if d.Library == "" {
		d.Library = name
	}
	return d
}

// Populate registers every module in names using catalog sections. Empty,
// reserved and already registered names are skipped. It returns the number
// of modules added.
func Populate(reg *registry.Registry, names []string, catalog *Catalog, logger *zap.Logger) int {
	added := 0
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		d := Descriptor(name, catalog.Section(name))
		err := reg.Register(d)
		switch {
		case err == nil:
			added++
			if d.Status == registry.StatusInvalid {
				logger.Warn("Invalid module configuration: gui declared without a title",
					zap.String("module", name))
			}
		case errors.Is(err, registry.ErrReservedName):
			logger.Debug("Skipping reserved module", zap.String("module", name))
		case errors.Is(err, registry.ErrDuplicateName):
			logger.Debug("Module already registered", zap.String("module", name))
		default:
			logger.Warn("Failed to register module", zap.String("module", name), zap.Error(err))
		}
	}
	if reg.Len() == 0 {
		logger.Warn("Modules list is empty")
	}
	return added
}
