// Package prerequisites checks that the local binaries a batch runs are
// installed before the batch starts.
package prerequisites

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/imamik/fanout/internal/batch"
)

// Tool is a binary that one or more exec items run.
type Tool struct {
	// Name is the binary name or path as written in the batch file.
	Name string

	// Dir is the working directory of the first item using the tool.
	// Relative paths are resolved against it.
	Dir string

	// Items lists the items that run the tool.
	Items []string
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any tool is missing.
func (r *CheckResults) HasErrors() bool {
	return len(r.Missing) > 0
}

// Error returns an error naming every missing tool and the items using it.
func (r *CheckResults) Error() error {
	if !r.HasErrors() {
		return nil
	}
	missing := make([]string, 0, len(r.Missing))
	for _, tool := range r.Missing {
		missing = append(missing, fmt.Sprintf("%s (used by %s)", tool.Name, strings.Join(tool.Items, ", ")))
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, "; "))
}

// ToolsFor returns the binaries the exec items of b run, sorted by name.
func ToolsFor(b *batch.Batch) []Tool {
	byName := make(map[string]*Tool)
	for _, item := range b.Items {
		if item.Exec == nil || len(item.Exec.Command) == 0 {
			continue
		}
		name := item.Exec.Command[0]
		tool, ok := byName[name]
		if !ok {
			tool = &Tool{Name: name, Dir: item.Exec.Dir}
			byName[name] = tool
		}
		tool.Items = append(tool.Items, item.Name)
	}

	tools := make([]Tool, 0, len(byName))
	for _, tool := range byName {
		tools = append(tools, *tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Check verifies that the specified tools are available.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := exec.LookPath(resolve(tool))
		if err == nil {
			result.Found = true
			result.Path = path
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// CheckBatch checks every binary the exec items of b run.
func CheckBatch(b *batch.Batch) *CheckResults {
	return Check(ToolsFor(b))
}

// resolve turns a relative path into one rooted at the tool's working
// directory. Bare names are looked up in PATH.
func resolve(tool Tool) string {
	if !strings.ContainsRune(tool.Name, filepath.Separator) || filepath.IsAbs(tool.Name) || tool.Dir == "" {
		return tool.Name
	}
	return filepath.Join(tool.Dir, tool.Name)
}
