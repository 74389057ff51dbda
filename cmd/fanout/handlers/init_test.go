package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/fanout/internal/batch"
)

func wizardResult() *batch.WizardResult {
	return &batch.WizardResult{
		Name:        "Rollout",
		Concurrency: 4,
		Timeout:     5 * time.Minute,
		Kinds:       []batch.Kind{batch.KindSleep, batch.KindExec},
	}
}

func TestInit_WritesBatch(t *testing.T) {
	saveAndRestoreFactories(t)
	out := captureStdout(t)
	fileExists = func(string) bool { return false }
	runWizard = func(context.Context) (*batch.WizardResult, error) { return wizardResult(), nil }

	var saved *batch.Batch
	var savedPath string
	saveBatch = func(b *batch.Batch, path string) error {
		saved, savedPath = b, path
		return nil
	}

	require.NoError(t, Init(context.Background(), "checks.yaml", false))

	require.NotNil(t, saved)
	assert.Equal(t, "checks.yaml", savedPath)
	assert.Equal(t, "rollout", saved.Name)
	assert.Len(t, saved.Items, 2)

	output := out.String()
	assert.Contains(t, output, "fanout - run independent work items in parallel")
	assert.Contains(t, output, "Batch file saved!")
	assert.Contains(t, output, "fanout run -f checks.yaml")
}

func TestInit_RoundTrip(t *testing.T) {
	saveAndRestoreFactories(t)
	captureStdout(t)
	runWizard = func(context.Context) (*batch.WizardResult, error) { return wizardResult(), nil }
	path := filepath.Join(t.TempDir(), "fanout.yaml")

	require.NoError(t, Init(context.Background(), path, false))

	b, err := batch.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rollout", b.Name)
	assert.Equal(t, 5*time.Minute, b.Timeout)
}

func TestInit_ExistingFile(t *testing.T) {
	saveAndRestoreFactories(t)
	fileExists = func(string) bool { return true }
	runWizard = func(context.Context) (*batch.WizardResult, error) {
		t.Fatal("wizard must not run")
		return nil, nil
	}

	err := Init(context.Background(), "fanout.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInit_Force(t *testing.T) {
	saveAndRestoreFactories(t)
	captureStdout(t)
	fileExists = func(string) bool { return true }
	runWizard = func(context.Context) (*batch.WizardResult, error) { return wizardResult(), nil }
	saved := false
	saveBatch = func(*batch.Batch, string) error {
		saved = true
		return nil
	}

	require.NoError(t, Init(context.Background(), "fanout.yaml", true))
	assert.True(t, saved)
}

func TestInit_WizardCanceled(t *testing.T) {
	saveAndRestoreFactories(t)
	captureStdout(t)
	fileExists = func(string) bool { return false }
	runWizard = func(context.Context) (*batch.WizardResult, error) {
		return nil, errors.New("user aborted")
	}

	err := Init(context.Background(), "fanout.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard canceled")
}

func TestInit_SaveError(t *testing.T) {
	saveAndRestoreFactories(t)
	captureStdout(t)
	fileExists = func(string) bool { return false }
	runWizard = func(context.Context) (*batch.WizardResult, error) { return wizardResult(), nil }
	saveBatch = func(*batch.Batch, string) error { return errors.New("read-only file system") }

	err := Init(context.Background(), "fanout.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write batch file")
}
