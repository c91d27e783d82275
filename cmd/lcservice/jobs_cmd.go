package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/decagraff/lc-service/cmd/lcservice/cli"
	"github.com/decagraff/lc-service/internal/app"
	"github.com/decagraff/lc-service/jobs"
)

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: lcservice jobs <trigger|stats> [name]")
		return 1
	}

	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()

	switch args[0] {
	case "trigger":
		name := jobs.TaskTypeExpireSweep
		if len(args) > 1 {
			name = args[1]
		}
		info, err := jobsCLI.Trigger(ctx, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trigger: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", name, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stats: %v\n", err)
			return 1
		}
		out, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(out))
		return 0
	default:
		fmt.Fprintf(os.Stderr, "jobs: unknown subcommand %q\n", args[0])
		return 1
	}
}
