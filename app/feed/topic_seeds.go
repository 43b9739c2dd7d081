package feed

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// TopicSeeds loads topic definitions from *.yml files in a directory.
type TopicSeeds struct {
	topicsDir string
	cache     map[string]*TopicSeed
	mu        sync.RWMutex
}

func NewTopicSeeds(topicsDir string) *TopicSeeds {
	return &TopicSeeds{
		topicsDir: topicsDir,
		cache:     make(map[string]*TopicSeed),
	}
}

func (ts *TopicSeeds) Run() error {
	if _, err := os.Stat(ts.topicsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(ts.topicsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := strings.TrimSuffix(filepath.Base(file), ".yml")

		seed, err := ts.LoadSeed(fileName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Topic seed loaded", "topic", seed.Name, "source", seed.Source, "active", seed.IsActive())
	}

	return nil
}

func (ts *TopicSeeds) LoadSeed(fileName string) (*TopicSeed, error) {
	seedFile := filepath.Join(ts.topicsDir, fileName+".yml")
	seed, err := ts.parseSeed(seedFile)
	if err != nil {
		return nil, err
	}

	if seed.Name == "" {
		seed.Name = fileName
	}

	if err := ts.validateSeed(seed); err != nil {
		return nil, fmt.Errorf("invalid topic seed %s: %w", seedFile, err)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.cache[seed.Name] = seed

	return seed, nil
}

func (ts *TopicSeeds) GetSeed(name string) (*TopicSeed, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	seed, ok := ts.cache[name]
	if !ok {
		return nil, fmt.Errorf("topic seed with name '%s' not found", name)
	}
	return seed, nil
}

func (ts *TopicSeeds) GetSeeds() map[string]*TopicSeed {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return maps.Clone(ts.cache)
}

func (ts *TopicSeeds) GetSeedCount() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.cache)
}

func (ts *TopicSeeds) parseSeed(seedFile string) (*TopicSeed, error) {
	data, err := os.ReadFile(seedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var seed TopicSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &seed, nil
}

func (ts *TopicSeeds) validateSeed(seed *TopicSeed) error {
	if seed == nil {
		return fmt.Errorf("topic seed is nil")
	}

	if seed.URL == "" {
		return fmt.Errorf("feed URL is required")
	}

	source, err := ParseSource(seed.Source)
	if err != nil {
		return err
	}
	seed.Source = source.String()

	for i, keyword := range seed.Keywords {
		if strings.TrimSpace(keyword) == "" {
			return fmt.Errorf("keyword at index %d is empty", i)
		}
	}

	return nil
}
