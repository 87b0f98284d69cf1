package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CatalogFile is the module catalog file name inside the config directory.
const CatalogFile = "modules.yaml"

// ModuleList is a list of module names. In YAML it may be written either as
// a sequence or as a single comma separated string.
type ModuleList []string

// UnmarshalYAML accepts both list forms.
func (l *ModuleList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = splitNames(node.Value, ",")
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*l = splitNames(strings.Join(names, ","), ",")
		return nil
	}
	return fmt.Errorf("line %d: modules must be a list or a comma separated string", node.Line)
}

// LaunchSection lists the modules to register at startup.
type LaunchSection struct {
	Modules ModuleList `yaml:"modules"`
}

// ModuleSection describes a single module in the catalog.
type ModuleSection struct {
	// Name is the user-visible title. A module without one has no GUI.
	Name        string `yaml:"name"`
	GUI         bool   `yaml:"gui"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description"`
	Library     string `yaml:"library"`
	Version     string `yaml:"version"`
	Displayer   string `yaml:"displayer"`
}

// Catalog represents the modules.yaml structure
type Catalog struct {
	Launch  LaunchSection            `yaml:"launch"`
	Modules map[string]ModuleSection `yaml:"modules"`
}

// Section returns the catalog section for a module. A module missing from
// the catalog gets an empty section.
func (c *Catalog) Section(name string) ModuleSection {
	if c == nil {
		return ModuleSection{}
	}
	return c.Modules[name]
}

// Loader manages catalog loading and reloading
type Loader struct {
	configDir string
	logger    *zap.Logger

	mu       sync.RWMutex
	catalog  *Catalog
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewLoader creates a new catalog loader
func NewLoader(configDir string, logger *zap.Logger) *Loader {
	return &Loader{
		configDir: configDir,
		logger:    logger.Named("config"),
		stopChan:  make(chan struct{}),
	}
}

// Path returns the catalog file path.
func (l *Loader) Path() string {
	return filepath.Join(l.configDir, CatalogFile)
}

// Load reads and parses the catalog file.
func (l *Loader) Load() error {
	path := l.Path()
	l.logger.Debug("Loading module catalog", zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read module catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("failed to parse module catalog: %w", err)
	}

	l.mu.Lock()
	l.catalog = &catalog
	l.mu.Unlock()

	l.logger.Info("Module catalog loaded",
		zap.Int("modules", len(catalog.Modules)),
		zap.Strings("launch", catalog.Launch.Modules))
	return nil
}

// Catalog returns the loaded catalog, or an empty one before Load.
func (l *Loader) Catalog() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.catalog == nil {
		return &Catalog{}
	}
	return l.catalog
}

// StartAutoReload re-reads the catalog every interval and hands each
// successfully parsed catalog to onReload.
func (l *Loader) StartAutoReload(interval time.Duration, onReload func(*Catalog)) {
	l.logger.Info("Starting catalog auto-reload", zap.Duration("interval", interval))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := l.Load(); err != nil {
					l.logger.Error("Failed to reload module catalog", zap.Error(err))
					continue
				}
				if onReload != nil {
					onReload(l.Catalog())
				}
			case <-l.stopChan:
				l.logger.Info("Stopping catalog auto-reload")
				return
			}
		}
	}()
}

// Stop stops the auto-reload goroutine. It is safe to call more than once.
func (l *Loader) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
}
