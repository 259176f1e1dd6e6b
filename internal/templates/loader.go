package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quiz-funnel-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Parse decodes one YAML template definition. Field names follow the JSON shape the
// funnels were first authored in (questions, questionOrder, multiSelect, ...).
func Parse(data []byte) (domain.QuizTemplate, error) {
	var tpl domain.QuizTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return domain.QuizTemplate{}, fmt.Errorf("decode template: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return domain.QuizTemplate{}, err
	}
	return tpl, nil
}

// LoadDir parses every *.yaml / *.yml file in dir.
func LoadDir(dir string) ([]domain.QuizTemplate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	var out []domain.QuizTemplate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		tpl, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, tpl)
	}
	return out, nil
}

// RegisterDir loads dir into r and returns how many templates were registered.
func RegisterDir(r *Registry, dir string) (int, error) {
	tpls, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}
	for _, tpl := range tpls {
		if err := r.Register(tpl); err != nil {
			return 0, err
		}
	}
	return len(tpls), nil
}
