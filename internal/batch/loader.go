package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFilename is the batch file looked up by FindBatchFile.
const DefaultFilename = "fanout.yaml"

// Load loads and validates a batch from a file.
func Load(path string) (*Batch, error) {
	b, err := LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("batch validation failed: %w", err)
	}

	return b, nil
}

// LoadWithoutValidation loads a batch from a file without validation.
func LoadWithoutValidation(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	return parseBatch(data)
}

// LoadFromBytes parses and validates a batch.
func LoadFromBytes(data []byte) (*Batch, error) {
	b, err := parseBatch(data)
	if err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("batch validation failed: %w", err)
	}

	return b, nil
}

// parseBatch decodes YAML strictly: unknown keys are errors.
func parseBatch(data []byte) (*Batch, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var b Batch
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("batch file is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &b, nil
}

// FindBatchFile looks for fanout.yaml in the current directory and then in
// each parent directory.
func FindBatchFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return findBatchFileFrom(cwd)
}

func findBatchFileFrom(dir string) (string, error) {
	for {
		path := filepath.Join(dir, DefaultFilename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("batch file %s not found", DefaultFilename)
}

// Save writes a batch to a file.
func Save(b *Batch, path string) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write batch file: %w", err)
	}

	return nil
}
