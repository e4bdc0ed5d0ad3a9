// Package gherkin bridges the lifecycle controller to a Gherkin scenario
// runner (spec.md §4.6): it validates a staged workspace, executes every
// feature file under it with the configured step-definition DSLs bound,
// and reports an aggregate TestResult.
package gherkin

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
	"github.com/spf13/afero"

	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
)

// StepRegistrar binds one glue package's step definitions into a godog
// scenario context. cfg.Cucumber.GluePackages (spec.md §6) names which of
// these are wired in at compile time — Go has no runtime package loading,
// so "glue package" selection is a build-time decision here rather than a
// reflection-based one.
type StepRegistrar func(*godog.ScenarioContext)

// Executor runs Gherkin scenarios against a staged workspace.
type Executor struct {
	registrars []StepRegistrar
}

// NewExecutor constructs an Executor with every glue package's step
// definitions bound.
func NewExecutor(registrars ...StepRegistrar) *Executor {
	return &Executor{registrars: registrars}
}

// Initialize validates that the workspace was staged with at least one
// feature file before the executor is asked to run (spec.md §4.6,
// "validating workspace population on Initialize").
func (e *Executor) Initialize(workspaceRoot string, fs afero.Fs) error {
	featuresDir := workspaceRoot + "/features"

	info, err := fs.Stat(featuresDir)
	if err != nil {
		return probeerrors.Wrap(probeerrors.KindCucumber, fmt.Errorf("features directory not staged: %w", err))
	}
	if !info.IsDir() {
		return probeerrors.New(probeerrors.KindCucumber, "%s is not a directory", featuresDir)
	}

	entries, err := afero.ReadDir(fs, featuresDir)
	if err != nil {
		return probeerrors.Wrap(probeerrors.KindCucumber, err)
	}
	if len(entries) == 0 {
		return probeerrors.New(probeerrors.KindCucumber, "no feature files staged under %s", featuresDir)
	}
	return nil
}

// Run executes every scenario under workspaceRoot/features against fs,
// using godog's fs.FS support so the in-memory staging filesystem is read
// directly, with no copy-out to the host filesystem.
func (e *Executor) Run(ctx context.Context, workspaceRoot string, fs afero.Fs) (probetypes.TestResult, error) {
	if err := e.Initialize(workspaceRoot, fs); err != nil {
		return probetypes.TestResult{}, err
	}

	var result probetypes.TestResult
	start := time.Now()

	opts := godog.Options{
		Format: "progress",
		Paths:  []string{workspaceRoot + "/features"},
		FS:     afero.NewIOFS(fs),
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			for _, reg := range e.registrars {
				reg(sc)
			}
			sc.After(func(gctx context.Context, s *godog.Scenario, scenarioErr error) (context.Context, error) {
				result.ScenarioCount++
				if scenarioErr != nil {
					result.ScenariosFailed++
					if result.FailureSummary == "" {
						result.FailureSummary = fmt.Sprintf("%s: %v", s.Name, scenarioErr)
					} else {
						result.FailureSummary += fmt.Sprintf("; %s: %v", s.Name, scenarioErr)
					}
				} else {
					result.ScenariosPassed++
				}
				return gctx, nil
			})
		},
		Options: &opts,
	}

	status := suite.Run()
	result.Duration = time.Since(start)

	if status != 0 && result.FailureSummary == "" {
		result.FailureSummary = "gherkin suite exited with non-zero status"
	}
	return result, nil
}
