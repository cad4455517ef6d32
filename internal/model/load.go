package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadProfile reads an applicant profile from a JSON or YAML file
func LoadProfile(path string) (*OrganizationProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p OrganizationProfile
	if err := decode(path, data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFoundations reads one foundation object or an array of them
func LoadFoundations(path string) ([]FoundationOpportunityData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read foundations: %w", err)
	}

	var list []FoundationOpportunityData
	if looksLikeList(path, data) {
		if err := decode(path, data, &list); err != nil {
			return nil, fmt.Errorf("failed to parse foundations %s: %w", path, err)
		}
	} else {
		var f FoundationOpportunityData
		if err := decode(path, data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse foundation %s: %w", path, err)
		}
		list = append(list, f)
	}

	for i := range list {
		if err := list[i].Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func decode(path string, data []byte, v interface{}) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func looksLikeList(path string, data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if isYAML(path) {
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil || len(node.Content) == 0 {
			return false
		}
		return node.Content[0].Kind == yaml.SequenceNode
	}
	return len(trimmed) > 0 && trimmed[0] == '['
}
