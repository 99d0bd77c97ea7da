package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/studiowebux/todoload/internal/types"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultRecords returns the built-in sample set: things to do in Kaohsiung
func DefaultRecords() []types.TodoRecord {
	return []types.TodoRecord{
		{
			Title:       "Visit the Dragon and Tiger Pagodas",
			Description: "Explore the iconic Dragon and Tiger Pagodas at Lotus Pond, and don't forget to enter through the dragon's mouth and exit from the tiger's mouth for good luck.",
		},
		{
			Title:       "Enjoy the Night Market at Ruifeng",
			Description: "Discover the popular Ruifeng Night Market, known for its variety of street food, carnival games, and local goods, offering a lively experience in the heart of Kaohsiung.",
		},
		{
			Title:       "Take a Ferry to Cijin Island",
			Description: "Take a quick ferry ride to Cijin Island, a beautiful spot for beaches, seafood, and a hike up to the Cihou Lighthouse for stunning views of Kaohsiung harbor.",
		},
		{
			Title:       "Explore the Pier-2 Art Center",
			Description: "Visit the Pier-2 Art Center, a cultural hub with contemporary art exhibitions, creative shops, and outdoor art installations along the harbor.",
		},
		{
			Title:       "Visit Sizihwan Bay",
			Description: "Relax at Sizihwan Bay, famous for its beautiful sunset views, sandy beaches, and calm waters, offering a perfect spot to unwind and enjoy the ocean scenery.",
		},
		{
			Title:       "Visit Love River",
			Description: "Stroll along Love River, a scenic waterway that runs through the city, lined with parks, cafes, and walking paths, offering a peaceful escape from the urban bustle.",
		},
		{
			Title:       "Visit Kaohsiung Music Center",
			Description: "Explore the Kaohsiung Music Center, a modern architectural marvel with concert halls, music schools, and performance spaces, offering a vibrant cultural experience.",
		},
	}
}

// recordFile is the on-disk layout of a seed set
type recordFile struct {
	Todos []types.TodoRecord `json:"todos" yaml:"todos" toml:"todos"`
}

// LoadRecords reads a seed set from a .yaml, .yml, .json, .jsonc or .toml file
func LoadRecords(path string) ([]types.TodoRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file recordFile

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse YAML seed file: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON seed file: %w", err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), &file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML seed file: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys in seed file: %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported seed file format: %s (use .yaml, .yml, .json, .jsonc or .toml)", ext)
	}

	if err := ValidateRecords(file.Todos); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}

	return file.Todos, nil
}

// ValidateRecords checks that the set is non-empty and titles are unique.
// Titles are the de-duplication key used while seeding.
func ValidateRecords(records []types.TodoRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("no todos defined")
	}

	seen := make(map[string]int, len(records))
	for i, r := range records {
		if r.Title == "" {
			return fmt.Errorf("todo %d: title is required", i)
		}
		if prev, ok := seen[r.Title]; ok {
			return fmt.Errorf("todo %d: duplicate title %q (first seen at %d)", i, r.Title, prev)
		}
		seen[r.Title] = i
	}
	return nil
}
