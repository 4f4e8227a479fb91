// .stkit.yaml project file support.
//
// When a .stkit.yaml exists in the working directory, it pins per-project
// settings so a team shares one configuration without exporting a pile of
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the default project file name.
const ProjectFileName = ".stkit.yaml"

// ProjectFile is the YAML schema of .stkit.yaml. Zero values mean "not
// set"; only set fields override the environment configuration.
type ProjectFile struct {
	// Input is the directory tree of source stringtable files.
	Input string `yaml:"input,omitempty"`
	// Output is the build output root (default "out").
	Output string `yaml:"output,omitempty"`
	// Language is the target language name for prompts.
	Language string `yaml:"language,omitempty"`
	// LanguageSlot is the localized/ directory the output occupies.
	LanguageSlot string `yaml:"language_slot,omitempty"`
	// Glossary is a CSV glossary path relative to the project file.
	Glossary string `yaml:"glossary,omitempty"`
	// BatchSize overrides the per-request text count.
	BatchSize int `yaml:"batch_size,omitempty"`
	// Model overrides the chat model.
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
	// MinRequestIntervalSeconds overrides the request spacing.
	MinRequestIntervalSeconds float64 `yaml:"min_request_interval_seconds,omitempty"`
}

// LoadProjectFile loads .stkit.yaml from dir. Returns nil (no error) when
// the file does not exist.
func LoadProjectFile(dir string) (*ProjectFile, error) {
	path := filepath.Join(dir, ProjectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var pf ProjectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Relative paths resolve against the project file location.
	for _, p := range []*string{&pf.Input, &pf.Output, &pf.Glossary} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return &pf, nil
}

// MergeProject overlays the set fields of pf onto c.
func (c *Config) MergeProject(pf *ProjectFile) {
	if pf == nil {
		return
	}
	if pf.Input != "" {
		c.InputDir = pf.Input
	}
	if pf.Output != "" {
		c.OutputDir = pf.Output
	}
	if pf.Language != "" {
		c.TargetLanguage = pf.Language
	}
	if pf.LanguageSlot != "" {
		c.LanguageSlot = pf.LanguageSlot
	}
	if pf.Glossary != "" {
		c.GlossaryPath = pf.Glossary
	}
	if pf.BatchSize > 0 {
		c.BatchSize = pf.BatchSize
	}
	if pf.Model != "" {
		c.Model = pf.Model
	}
	if pf.BaseURL != "" {
		c.BaseURL = pf.BaseURL
	}
	if pf.MinRequestIntervalSeconds > 0 {
		c.MinRequestInterval = time.Duration(pf.MinRequestIntervalSeconds * float64(time.Second))
	}
}
