// internal/integrations/workflows.go
package integrations

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Workflow is a compact summary of one GitHub Actions workflow file.
type Workflow struct {
	Name        string
	File        string
	Triggers    []string
	Jobs        []WorkflowJob
	PathFilters []string
}

// WorkflowJob summarizes one job inside a workflow.
type WorkflowJob struct {
	Name       string
	RunsOn     string
	StepsCount int
}

// rawWorkflow mirrors the subset of the Actions schema we read. The "on" key
// may be a string, a list, or a map, so it stays a yaml.Node.
type rawWorkflow struct {
	Name string              `yaml:"name"`
	On   yaml.Node           `yaml:"on"`
	Jobs map[string]struct {
		RunsOn yaml.Node `yaml:"runs-on"`
		Steps  []any     `yaml:"steps"`
	} `yaml:"jobs"`
}

// LoadWorkflows parses every workflow under repoPath/.github/workflows.
// A repository without that directory yields an empty slice, not an error.
func LoadWorkflows(repoPath string) ([]Workflow, error) {
	dir := filepath.Join(repoPath, ".github", "workflows")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading workflows dir: %w", err)
	}

	var workflows []Workflow
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading workflow %s: %w", entry.Name(), err)
		}
		wf, err := parseWorkflow(entry.Name(), data)
		if err != nil {
			return nil, fmt.Errorf("parsing workflow %s: %w", entry.Name(), err)
		}
		workflows = append(workflows, wf)
	}
	sort.Slice(workflows, func(i, j int) bool { return workflows[i].File < workflows[j].File })
	return workflows, nil
}

func parseWorkflow(file string, data []byte) (Workflow, error) {
	var raw rawWorkflow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Workflow{}, err
	}

	wf := Workflow{Name: raw.Name, File: file}
	if wf.Name == "" {
		wf.Name = strings.TrimSuffix(file, filepath.Ext(file))
	}
	wf.Triggers, wf.PathFilters = parseTriggers(&raw.On)

	jobNames := make([]string, 0, len(raw.Jobs))
	for name := range raw.Jobs {
		jobNames = append(jobNames, name)
	}
	sort.Strings(jobNames)
	for _, name := range jobNames {
		job := raw.Jobs[name]
		wf.Jobs = append(wf.Jobs, WorkflowJob{
			Name:       name,
			RunsOn:     scalarOrFirst(&job.RunsOn),
			StepsCount: len(job.Steps),
		})
	}
	return wf, nil
}

// parseTriggers flattens the "on" key into event names plus any push/pull
// request path filters.
func parseTriggers(node *yaml.Node) ([]string, []string) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		var triggers []string
		for _, item := range node.Content {
			triggers = append(triggers, item.Value)
		}
		return triggers, nil
	case yaml.MappingNode:
		var triggers, paths []string
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			triggers = append(triggers, key)
			paths = append(paths, mappingPaths(node.Content[i+1])...)
		}
		return triggers, paths
	}
	return nil, nil
}

func mappingPaths(node *yaml.Node) []string {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	var paths []string
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if key != "paths" && key != "paths-ignore" {
			continue
		}
		for _, item := range node.Content[i+1].Content {
			paths = append(paths, item.Value)
		}
	}
	return paths
}

func scalarOrFirst(node *yaml.Node) string {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value
	case yaml.SequenceNode:
		if len(node.Content) > 0 {
			return node.Content[0].Value
		}
	}
	return ""
}

// SummarizeForPrompt renders the workflows as a short text block suitable
// for inclusion in a repository map.
func SummarizeForPrompt(workflows []Workflow) string {
	if len(workflows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("CI workflows:\n")
	for _, wf := range workflows {
		fmt.Fprintf(&b, "- %s (%s): on %s", wf.Name, wf.File, strings.Join(wf.Triggers, ", "))
		if len(wf.PathFilters) > 0 {
			fmt.Fprintf(&b, "; paths %s", strings.Join(wf.PathFilters, ", "))
		}
		b.WriteString("\n")
		for _, job := range wf.Jobs {
			fmt.Fprintf(&b, "  - job %s on %s, %d steps\n", job.Name, job.RunsOn, job.StepsCount)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
