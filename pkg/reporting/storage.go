package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ResponseStorage persists query responses as JSON files for later
// audit, keeping only the most recent N on disk.
type ResponseStorage struct {
	outputDir string
	keepLastN int
	logger    *Logger
}

// NewResponseStorage creates a storage instance, creating the output
// directory if needed.
func NewResponseStorage(outputDir string, keepLastN int, logger *Logger) (*ResponseStorage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &ResponseStorage{
		outputDir: outputDir,
		keepLastN: keepLastN,
		logger:    logger,
	}, nil
}

// Save writes one response to disk. The filename embeds the scenario
// time so a lexical sort is a chronological sort.
func (s *ResponseStorage) Save(scenarioTime time.Time, response any) (string, error) {
	filename := fmt.Sprintf("response-%s-%d.json",
		scenarioTime.UTC().Format("20060102-150405"), time.Now().UnixNano())
	path := filepath.Join(s.outputDir, filename)

	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write response file: %w", err)
	}

	s.logger.Info("Response saved", "path", path)

	if s.keepLastN > 0 {
		if err := s.cleanupOld(); err != nil {
			s.logger.Warn("Failed to cleanup old responses", "error", err)
		}
	}

	return path, nil
}

// List returns the stored response file paths, newest first.
func (s *ResponseStorage) List() ([]string, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(s.outputDir, entry.Name()))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

// Load reads one stored response into out.
func (s *ResponseStorage) Load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read response file: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// GetOutputDir returns the output directory path
func (s *ResponseStorage) GetOutputDir() string {
	return s.outputDir
}

// cleanupOld removes response files beyond the newest keepLastN.
func (s *ResponseStorage) cleanupOld() error {
	paths, err := s.List()
	if err != nil {
		return err
	}
	if len(paths) <= s.keepLastN {
		return nil
	}

	for _, path := range paths[s.keepLastN:] {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to delete old response", "path", path, "error", err)
		} else {
			s.logger.Debug("Deleted old response", "path", path)
		}
	}
	return nil
}
