package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/verdict/internal/simulation"
	"github.com/okian/verdict/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	defaults := simulation.DefaultConfig()
	var (
		judges        = flag.Int("judges", defaults.Judges, "Number of judges")
		submissions   = flag.Int("submissions", defaults.Submissions, "Number of submissions")
		rounds        = flag.Int("rounds", defaults.Rounds, "Number of weighted rounds")
		contenders    = flag.Int("contenders", defaults.Contenders, "Concurrent submitters per review")
		workers       = flag.Int("workers", defaults.Workers, "Concurrent review tasks")
		notifyWorkers = flag.Int("notify-workers", defaults.NotifyWorkers, "Notification delivery workers")
		mirrorLoss    = flag.Int("mirror-loss", defaults.MirrorLossEvery, "Drop every Nth mirror write (0 disables)")
		source        = flag.String("source", defaults.LeaderboardSource, "Leaderboard source: mirror or ledger")
		logFile       = flag.String("log", "", "Log file (default: simulation_TIMESTAMP.log)")
		level         = flag.String("level", "info", "Log level")
		timeout       = flag.Duration("timeout", defaultRunTimeout, "Overall run timeout")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulation.ShowHelp()
		return
	}

	closeLog, err := simulation.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()
	_ = logger.SetLevelString(*level)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := &simulation.Config{
		Judges:            *judges,
		Submissions:       *submissions,
		Rounds:            *rounds,
		Contenders:        *contenders,
		Workers:           *workers,
		NotifyWorkers:     *notifyWorkers,
		MirrorLossEvery:   *mirrorLoss,
		LeaderboardSource: *source,
		LogFile:           *logFile,
	}

	if _, err := simulation.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		_ = closeLog()
		os.Exit(1)
	}
}
