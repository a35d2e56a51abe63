package workflow

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a workflow definition file. Environment variables in
// the document are expanded before parsing; unknown fields are rejected.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	wf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	wf.Source = path
	return wf, nil
}

// Parse decodes a workflow document from raw YAML.
func Parse(data []byte) (*Workflow, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var wf Workflow
	if err := dec.Decode(&wf); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty workflow document")
		}
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	if wf.Name == "" {
		return nil, fmt.Errorf("workflow name is required")
	}
	if len(wf.Jobs) == 0 {
		return nil, fmt.Errorf("workflow %q declares no jobs", wf.Name)
	}
	expandStructured(&wf)
	return &wf, nil
}

// expandStructured expands loader-process environment variables in env and
// with values only. Run scripts keep their $VAR references verbatim: those
// belong to the step's shell, which sees the step environment at exec time.
func expandStructured(wf *Workflow) {
	expandValues(wf.Env)
	for _, job := range wf.Jobs {
		for i := range job.Steps {
			expandValues(job.Steps[i].Env)
			expandValues(job.Steps[i].With)
		}
	}
}

func expandValues(m map[string]string) {
	for k, v := range m {
		m[k] = os.ExpandEnv(v)
	}
}

// LoadDir loads every *.yaml/*.yml workflow under dir, sorted by filename.
func LoadDir(dir string) ([]*Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow directory: %w", err)
	}
	var flows []*Workflow
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		wf, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		flows = append(flows, wf)
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].Source < flows[j].Source })
	return flows, nil
}

// JobNames returns the job keys in deterministic order.
func (w *Workflow) JobNames() []string {
	names := make([]string, 0, len(w.Jobs))
	for name := range w.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
