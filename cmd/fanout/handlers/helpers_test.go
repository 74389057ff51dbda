package handlers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imamik/fanout/internal/work"
)

// saveAndRestoreFactories saves and restores every factory variable.
func saveAndRestoreFactories(t *testing.T) {
	origFindBatchFile := findBatchFile
	origLoadBatch := loadBatch
	origNewWorkEnv := newWorkEnv
	origCheckTools := checkTools
	origNewUploader := newUploader
	origRunDashboard := runDashboard
	origIsTerminal := isTerminal
	origStdout := stdout
	origWriteFile := writeFile
	origFileExists := fileExists
	origRunWizard := runWizard
	origSaveBatch := saveBatch

	t.Cleanup(func() {
		findBatchFile = origFindBatchFile
		loadBatch = origLoadBatch
		newWorkEnv = origNewWorkEnv
		checkTools = origCheckTools
		newUploader = origNewUploader
		runDashboard = origRunDashboard
		isTerminal = origIsTerminal
		stdout = origStdout
		writeFile = origWriteFile
		fileExists = origFileExists
		runWizard = origRunWizard
		saveBatch = origSaveBatch
	})

	// Tests never run against a real terminal or real clusters.
	isTerminal = func(*os.File) bool { return false }
	newWorkEnv = func(string) *work.Env { return &work.Env{} }
}

// captureStdout points stdout at a buffer.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	stdout = &buf
	return &buf
}

func writeBatchFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fanout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
