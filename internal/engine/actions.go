package engine

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/flightwatch/internal/models"
)

// ActionPackFile is the YAML root structure of an action pack.
type ActionPackFile struct {
	Actions map[models.AnomalyType][]string `yaml:"actions"`
}

// LoadActionPack reads recommended-action overrides from path. An empty path
// or a missing file yields nil overrides.
func LoadActionPack(path string) (map[models.AnomalyType][]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read action pack: %w", err)
	}
	var pack ActionPackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse action pack: %w", err)
	}

	known := make(map[models.AnomalyType]struct{})
	for _, rule := range DefaultRules() {
		known[rule.Type] = struct{}{}
	}
	for typ, actions := range pack.Actions {
		if _, ok := known[typ]; !ok {
			return nil, fmt.Errorf("action pack: unknown anomaly type %q", typ)
		}
		if len(compact(actions)) == 0 {
			return nil, fmt.Errorf("action pack: %s has no actions", typ)
		}
		pack.Actions[typ] = compact(actions)
	}
	return pack.Actions, nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
