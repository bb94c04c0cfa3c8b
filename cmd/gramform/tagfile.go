package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ava12/gramform/tagops"
)

// tagList is either a single key or a list of keys.
type tagList []string

func (tl *tagList) UnmarshalYAML(unmarshal func(any) error) error {
	var single string
	if e := unmarshal(&single); e == nil {
		*tl = tagList{single}
		return nil
	}

	var list []string
	if e := unmarshal(&list); e != nil {
		return fmt.Errorf("tag value must be a string or a list of strings: %w", e)
	}
	*tl = list
	return nil
}

func parseTags(content []byte) (tagops.Tags, error) {
	var raw map[string]tagList
	if e := yaml.UnmarshalStrict(content, &raw); e != nil {
		return nil, e
	}

	res := make(tagops.Tags, len(raw))
	for name, keys := range raw {
		res[name] = keys
	}
	return res, nil
}

func parseValues(content []byte) (map[string]any, error) {
	var res map[string]any
	if e := yaml.Unmarshal(content, &res); e != nil {
		return nil, e
	}
	if res == nil {
		res = make(map[string]any)
	}
	return res, nil
}

// tagKeys returns a value map containing every key mentioned in tags, with nil values.
func tagKeys(tags tagops.Tags) map[string]any {
	res := make(map[string]any)
	for _, keys := range tags {
		for _, k := range keys {
			res[k] = nil
		}
	}
	return res
}

type dataset struct {
	tags   tagops.Tags
	values map[string]any
	keys   bool
}

// loadDataset reads tag file and optional value file.
// Without value file every key mentioned in tags is a value with nil content.
func loadDataset(tagFile, valueFile string) (*dataset, error) {
	content, e := os.ReadFile(tagFile)
	if e != nil {
		return nil, e
	}

	tags, e := parseTags(content)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", tagFile, e)
	}

	if valueFile == "" {
		return &dataset{tags: tags, values: tagKeys(tags), keys: true}, nil
	}

	content, e = os.ReadFile(valueFile)
	if e != nil {
		return nil, e
	}

	values, e := parseValues(content)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", valueFile, e)
	}

	return &dataset{tags: tags, values: values}, nil
}

// formatSelection returns sorted selected keys, one per line, or YAML map of selected values.
func (ds *dataset) formatSelection(selected map[string]any) (string, error) {
	if ds.keys {
		res := ""
		for _, k := range tagops.Universe(selected).Sorted() {
			res += k + "\n"
		}
		return res, nil
	}

	content, e := yaml.Marshal(selected)
	if e != nil {
		return "", e
	}
	return string(content), nil
}
