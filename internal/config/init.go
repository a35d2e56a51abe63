package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const starterConfig = `# conveyor runner configuration
workflow_dir: .conveyor

workspace:
  directory: ./workspace
  clean: true

cache:
  directory: ./cache

store:
  path: ./conveyor.db

checkout:
  shallow_depth: 1
  retry:
    backoff: exponential
    initial: 1s
    max: 30s
    max_retries: 3

# Installer command templates, one per toolkit a workflow may request.
# Placeholders: {version}, {components}, {target}.
toolchains:
  cuda: "cuda-install --toolkit {version}"
  rustup: "rustup toolchain install {version} && rustup component add {components}"

daemon:
  listen_addr: ":8099"
  workers: 2
  queue_size: 64
  watch: true

nats:
  enabled: false
  url: nats://localhost:4222

metrics:
  enabled: false

logging:
  level: info
`

const starterWorkflow = `name: CI
on:
  push:
    branches: [main]
  pull_request: {}

jobs:
  build:
    strategy:
      fail-fast: false
      matrix:
        include:
          - os: ubuntu-latest
            target: x86_64-unknown-linux-gnu
    steps:
      - uses: checkout
      - name: Build
        run: make build
      - name: Test
        run: make test
`

// Init writes a starter configuration file and an example workflow.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	workflowPath := filepath.Join(DefaultWorkflowDir, "ci.yaml")
	if _, err := os.Stat(workflowPath); err == nil {
		return nil // keep the user's workflow
	}
	if err := os.MkdirAll(DefaultWorkflowDir, 0o755); err != nil {
		return fmt.Errorf("failed to create workflow directory: %w", err)
	}
	if err := os.WriteFile(workflowPath, []byte(starterWorkflow), 0o644); err != nil {
		return fmt.Errorf("failed to write example workflow: %w", err)
	}
	return nil
}
