package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hearthos/entitlement/internal/app"
	"github.com/hearthos/entitlement/internal/command"
	"github.com/hearthos/entitlement/internal/observability"
	"github.com/hearthos/entitlement/internal/service"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	svc := service.New(logger, service.Options{
		InactivityTimeout: cfg.InactivityTimeout,
		BcryptCost:        cfg.BcryptCost,
	}, metrics)
	processor := command.NewProcessor(logger, svc)

	input, name, err := openInput(cfg)
	if err != nil {
		logger.Error("open script", slog.Any("error", err))
		os.Exit(1)
	}
	defer input.Close()

	if err := run(logger, processor, input, name, os.Stdout); err != nil {
		logger.Error("run commands", slog.Any("error", err))
		os.Exit(1)
	}
}

// openInput picks the command source: a script file when configured
// (flag-style via the first argument, or ENTITLEMENT_SCRIPT_PATH),
// otherwise stdin.
func openInput(cfg *app.Config) (io.ReadCloser, string, error) {
	path := cfg.ScriptPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		return os.Stdin, "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// run executes commands line by line. Blank lines and # comments are
// skipped. Command failures are reported and counted but do not stop
// the run; a non-zero count yields an error so the process exits 1.
func run(logger *slog.Logger, processor *command.Processor, input io.Reader, name string, out io.Writer) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	failures := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result, err := processor.Execute(line)
		if err != nil {
			failures++
			logger.Warn("command failed",
				slog.String("source", name),
				slog.Int("line", lineNo),
				slog.Any("error", err),
			)
			fmt.Fprintf(out, "ERROR: %v\n", err)
			continue
		}
		fmt.Fprintln(out, result)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if failures > 0 {
		return fmt.Errorf("%d command(s) failed", failures)
	}
	return nil
}
