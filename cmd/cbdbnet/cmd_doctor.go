package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbdb-network/cbdbnet/client"
)

// doctorProbeID is a person ID used only to exercise authentication.
const doctorProbeID = 1

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against config, server, and auth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return runDoctor(ctx, cmd.OutOrStdout(), apiClient)
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor(ctx context.Context, w io.Writer, c *client.Client) error {
	fmt.Fprintln(w, "\ncbdbnet doctor")
	fmt.Fprintln(w, "==============")

	var results []checkResult

	cfgPath, _, cfgErr := loadConfigFile()
	switch {
	case cfgErr == nil:
		results = append(results, checkResult{Name: "Config file", Passed: true, Detail: fmt.Sprintf("found (%s)", cfgPath)})
	case cfgPath != "":
		// Env and flags are enough; a missing file is informational.
		results = append(results, checkResult{Name: "Config file", Passed: true, Detail: "not found, using flags and environment"})
	default:
		results = append(results, checkResult{Name: "Config file", Passed: false, Hint: cfgErr.Error()})
	}

	results = append(results, checkResult{Name: "Server URL", Passed: flagURL != "", Detail: flagURL, Hint: "Set --url or CBDBNET_URL"})

	if flagKey == "" {
		results = append(results, checkResult{Name: "API key", Passed: true, Detail: "not set (only loopback servers run without one)"})
	} else {
		results = append(results, checkResult{Name: "API key", Passed: true, Detail: "configured"})
	}

	health, err := c.Health(ctx)
	if err != nil {
		results = append(results, checkResult{
			Name: "Server reachable", Passed: false, Detail: flagURL,
			Hint: fmt.Sprintf("Is the server running? Try: cbdbnet serve\n   Error: %v", err),
		})
	} else {
		results = append(results, checkResult{
			Name: "Server reachable", Passed: true,
			Detail: fmt.Sprintf("%s, %s database %s, schema v%d", health.Version, health.Dialect, health.Database, health.SchemaVersion),
		})

		if err := checkAuth(ctx, c); err != nil {
			results = append(results, checkResult{Name: "Authentication", Passed: false, Hint: fmt.Sprintf("Check your API key. Error: %v", err)})
		} else {
			results = append(results, checkResult{Name: "Authentication", Passed: true, Detail: "valid"})
		}
	}

	fmt.Fprintln(w)
	allPassed := true
	for _, r := range results {
		mark := "✅"
		if !r.Passed {
			mark = "❌"
			allPassed = false
		}
		if r.Detail != "" {
			fmt.Fprintf(w, "%s %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, r.Name)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Fprintf(w, "   Hint: %s\n", r.Hint)
		}
	}

	fmt.Fprintln(w)
	if !allPassed {
		fmt.Fprintln(w, "❌ Some checks failed.")
		return errors.New("doctor found issues")
	}
	fmt.Fprintln(w, "✅ All checks passed!")
	return nil
}

// checkAuth calls an authenticated route. A 404 still proves the token was accepted.
func checkAuth(ctx context.Context, c *client.Client) error {
	_, err := c.People.Get(ctx, doctorProbeID)
	if err == nil || client.IsNotFound(err) {
		return nil
	}
	return err
}
