package testrunner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/example/protolink/builtins"
	"github.com/example/protolink/common"
	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

type Result int

const (
	Pass Result = iota
	Fail
	Skip
	Error
)

func (r Result) String() string {
	switch r {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	case Skip:
		return "SKIP"
	case Error:
		return "ERROR"
	}
	return "UNKNOWN"
}

type TestResult struct {
	Path    string
	Name    string
	Result  Result
	Message string
	Elapsed time.Duration
}

type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Errors  int
	Elapsed time.Duration
}

// Ok reports whether nothing failed or errored.
func (s Summary) Ok() bool {
	return s.Failed == 0 && s.Errors == 0
}

type Config struct {
	Dir     string
	Filter  string
	Limit   int
	Verbose bool
	// Mode, when set, overrides every scenario's own mode.
	Mode *runtime.Mode
	// Timeout bounds one scenario. Zero means five seconds.
	Timeout time.Duration
}

type loadedScenario struct {
	path     string
	scenario Scenario
	err      error
}

// Run discovers and runs the scenario files under cfg.Dir, returning
// results and a summary. The error is for discovery failures only.
func Run(ctx context.Context, cfg Config) ([]TestResult, Summary, error) {
	logger := common.Logger(ctx)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	scenarios, err := discover(cfg)
	if err != nil {
		return nil, Summary{}, err
	}

	start := time.Now()
	var results []TestResult
	var summary Summary
	summary.Total = len(scenarios)

	for _, ls := range scenarios {
		var tr TestResult
		if ls.err != nil {
			tr = TestResult{Path: ls.path, Result: Error, Message: ls.err.Error()}
		} else {
			tr = runScenario(ctx, cfg, ls.path, ls.scenario)
		}
		results = append(results, tr)

		switch tr.Result {
		case Pass:
			summary.Passed++
		case Fail:
			summary.Failed++
		case Skip:
			summary.Skipped++
		case Error:
			summary.Errors++
		}

		if cfg.Verbose {
			entry := logger.WithFields(logrus.Fields{"path": tr.Path, "result": tr.Result.String()})
			if tr.Message != "" {
				entry = entry.WithField("message", tr.Message)
			}
			entry.Info(tr.Name)
		}
	}

	summary.Elapsed = time.Since(start)
	return results, summary, nil
}

// discover loads every .yaml/.yml file under cfg.Dir in lexical order. A
// file that fails to parse yields one errored entry.
func discover(cfg Config) ([]loadedScenario, error) {
	var out []loadedScenario
	err := filepath.WalkDir(cfg.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		rel, err := filepath.Rel(cfg.Dir, path)
		if err != nil {
			rel = path
		}
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "opening %s", rel)
		}
		defer f.Close()

		scenarios, err := decodeScenarios(f)
		if err != nil {
			out = append(out, loadedScenario{path: rel, err: errors.Wrap(err, "parse error")})
			return nil
		}
		for _, sc := range scenarios {
			if cfg.Filter != "" && !strings.Contains(rel, cfg.Filter) && !strings.Contains(sc.Name, cfg.Filter) {
				continue
			}
			out = append(out, loadedScenario{path: rel, scenario: sc})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "discovering scenarios in %s", cfg.Dir)
	}

	if cfg.Limit > 0 && len(out) > cfg.Limit {
		out = out[:cfg.Limit]
	}
	return out, nil
}

func runScenario(ctx context.Context, cfg Config, rel string, sc Scenario) TestResult {
	tr := TestResult{Path: rel, Name: sc.Name}
	if sc.Skip != "" {
		tr.Result = Skip
		tr.Message = sc.Skip
		return tr
	}

	mode := runtime.Permissive
	if sc.Mode != nil {
		mode = *sc.Mode
	}
	if cfg.Mode != nil {
		mode = *cfg.Mode
	}

	logger := common.Logger(ctx).WithFields(logrus.Fields{"scenario": sc.Name, "mode": mode.String()})
	ctx = common.WithLogger(ctx, logger)

	start := time.Now()
	store := runtime.NewStore(runtime.Config{Mode: mode, Logger: logger})
	realm := runtime.NewRealm(store)
	interp := interpreter.New(realm)
	sched := interpreter.NewScheduler(interp)
	builtins.RegisterAll(interp, sched)

	e := newEnv(interp, sched)
	if err := e.build(sc); err != nil {
		realm.Close()
		tr.Result = Error
		tr.Message = err.Error()
		return tr
	}
	pipeline, err := e.compileSteps(sc.Steps)
	if err != nil {
		realm.Close()
		tr.Result = Error
		tr.Message = err.Error()
		return tr
	}

	err = runPipeline(ctx, cfg.Timeout, pipeline, realm.Close)
	tr.Elapsed = time.Since(start)

	var f *failure
	switch {
	case err == nil:
		tr.Result = Pass
	case errors.As(err, &f):
		tr.Result = Fail
		tr.Message = err.Error()
	default:
		tr.Result = Error
		tr.Message = err.Error()
	}
	return tr
}

// runPipeline runs pipeline under timeout and calls cleanup once the
// pipeline has returned. A pipeline that outlives the timeout is cancelled
// and abandoned: it stops at its next step boundary, and cleanup waits for
// that. A panic in a step becomes an error.
func runPipeline(ctx context.Context, timeout time.Duration, pipeline common.Executor, cleanup func()) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		defer cleanup()
		defer func() {
			if r := recover(); r != nil {
				done <- errors.Errorf("panic: %v", r)
			}
		}()
		done <- pipeline(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Errorf("timeout (%s)", timeout)
	}
}
