package simulation

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/verdict/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends log output to stdout and to logFile. If logFile is
// empty, a timestamped filename is generated. The returned closer flushes
// the file.
func SetupLogging(logFile string) (func() error, error) {
	if logFile == "" {
		logFile = "simulation_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file.Close, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Verdict Judging Simulator
=========================

Runs the judging engine in process: fans out work, races concurrent review
submissions, drops mirror writes, reconciles, and verifies the results and
leaderboard against an independently computed expectation.

Usage:
  go run ./cmd/simulate [options]

Options:
  -judges int          Number of judges (default 8)
  -submissions int     Number of submissions (default 40)
  -rounds int          Number of weighted rounds (default 3)
  -contenders int      Concurrent submitters per review (default 4)
  -workers int         Concurrent review tasks (default 16)
  -notify-workers int  Notification delivery workers (default 2)
  -mirror-loss int     Drop every Nth mirror write, 0 disables (default 7)
  -source string       Leaderboard source: mirror or ledger (default "mirror")
  -log string          Log file (default: simulation_TIMESTAMP.log)
  -level string        Log level (default "info")
  -help                Show this help message

Examples:
  go run ./cmd/simulate -judges 20 -submissions 500 -contenders 8
  go run ./cmd/simulate -source ledger -mirror-loss 0
`)
}
