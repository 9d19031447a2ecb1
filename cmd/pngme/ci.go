package pngme

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	ci := &cobra.Command{Use: "ci", Short: "CI template helpers for multiple providers"}
	rootCmd.AddCommand(ci)

	var provider string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a CI pipeline template for your provider",
		RunE: func(_ *cobra.Command, _ []string) error {
			var path string
			var content string
			switch provider {
			case "github":
				path = filepath.Join(".github", "workflows", "pngme.yml")
				content = `name: pngme
on:
  push:
    branches: [main]
  pull_request:

jobs:
  scan:
    runs-on: ubuntu-latest
    permissions:
      security-events: write
      contents: read
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-go@v5
        with:
          go-version: '1.25'
      - run: go build -o bin/pngme .
      - run: ./bin/pngme scan --sarif --fail-on high > pngme.sarif
      - uses: github/codeql-action/upload-sarif@v3
        if: always()
        with:
          sarif_file: pngme.sarif
`
			case "gitlab":
				path = ".gitlab-ci.yml"
				content = `stages: [scan]
scan:
  stage: scan
  image: golang:1.25
  script:
    - go version
    - go build -o bin/pngme .
    - ./bin/pngme scan --sarif --fail-on high | tee pngme.sarif
  artifacts:
    when: always
    paths:
      - pngme.sarif
`
			case "bitbucket":
				path = "bitbucket-pipelines.yml"
				content = `pipelines:
  default:
    - step:
        name: Pngme Scan
        image: golang:1.25
        caches:
          - go
        script:
          - go version
          - go build -o bin/pngme .
          - ./bin/pngme scan --sarif --fail-on high | tee pngme.sarif
        artifacts:
          - pngme.sarif
`
			case "azure":
				path = "azure-pipelines.yml"
				content = `trigger:
- main

pool:
  vmImage: 'ubuntu-latest'

steps:
- task: GoTool@0
  inputs:
    version: '1.25.x'
- script: |
    go version
    go build -o bin/pngme .
    ./bin/pngme scan --sarif --fail-on high | tee pngme.sarif
  displayName: 'Pngme Scan'
- publish: pngme.sarif
  artifact: pngme-sarif
  condition: succeededOrFailed()
`
			default:
				return fmt.Errorf("unknown --provider. Supported: github, gitlab, bitbucket, azure")
			}
			// ensure parent directories exist if needed
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&provider, "provider", "", "CI provider: github | gitlab | bitbucket | azure")
	if err := initCmd.MarkFlagRequired("provider"); err != nil {
		// fallback: print a hint if cobra API changes
		fmt.Fprintln(os.Stderr, "warning: could not mark --provider as required:", err)
	}
	ci.AddCommand(initCmd)
}
