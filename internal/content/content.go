// Package content загружает игровой контент (пулы целей, тем, стилей, событий)
// и собирает из него затравочный диалог сессии.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"novel-game/internal/model"
)

// Токены подстановки в шаблоне initial_prompt
const (
	TokenObjective  = "OBJECTIVE"
	TokenStyle      = "STYLE"
	TokenTheme      = "THEME"
	TokenFailStates = "FAIL_STATES"
)

// Document - содержимое файла игрового контента.
type Document struct {
	Objectives    []string `json:"objectives" yaml:"objectives"`
	Themes        []string `json:"themes" yaml:"themes"`
	WritingStyles []string `json:"writing_style" yaml:"writing_style"`
	RandomEvents  []string `json:"random_events" yaml:"random_events"`
	ImageStyles   []string `json:"image_gen_styles" yaml:"image_gen_styles"`
	InitialPrompt []string `json:"initial_prompt" yaml:"initial_prompt"` // Склеивается без разделителя
	FailStates    []string `json:"fail_states" yaml:"fail_states"`
}

// Load читает документ с диска. Формат определяется по расширению:
// .yaml/.yml - YAML, все остальное - JSON.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game content %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON разбирает JSON-документ и проверяет его.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidContent, err)
	}
	return &doc, doc.Validate()
}

// ParseYAML разбирает YAML-документ и проверяет его.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidContent, err)
	}
	return &doc, doc.Validate()
}

// Validate проверяет, что из всех обязательных пулов можно выбрать значение.
// random_events и fail_states могут быть пустыми.
func (d *Document) Validate() error {
	required := map[string][]string{
		"objectives":       d.Objectives,
		"themes":           d.Themes,
		"writing_style":    d.WritingStyles,
		"image_gen_styles": d.ImageStyles,
		"initial_prompt":   d.InitialPrompt,
	}
	var missing []string
	for name, pool := range required {
		if len(pool) == 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: empty %s", model.ErrInvalidContent, strings.Join(missing, ", "))
	}
	return nil
}
