package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	chiTransport "github.com/kailas-cloud/scbir/internal/transport/chi"
	"github.com/kailas-cloud/scbir/internal/usecase/health"
)

type statusOutput struct {
	Status chiTransport.StatusResponse `json:"status"`
	Health chiTransport.HealthResponse `json:"health"`
}

func NewStatusCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend readiness and index information",
		Long:  `Probe the search backend once and report whether it can answer searches.`,
		Args:  cobra.NoArgs,
		RunE:  makeStatusRunner(load),
	}
}

func makeStatusRunner(load appLoader) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := load(cmd)
		if err != nil {
			return err
		}

		report := a.probe(cmd.Context())
		hr := a.health.Check(cmd.Context())
		status := chiTransport.NewStatusResponse(report, a.messages())

		if jsonOutput(cmd) {
			checks := make(map[string]string, len(hr.Checks))
			for k, v := range hr.Checks {
				checks[k] = string(v)
			}
			return printJSON(cmd.OutOrStdout(), statusOutput{
				Status: status,
				Health: chiTransport.HealthResponse{
					Status:  string(hr.Status),
					Checks:  checks,
					Backend: hr.Backend,
				},
			})
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Backend: %s\n", status.State)
		if status.Message != "" {
			fmt.Fprintf(w, "  %s\n", status.Message)
		}
		if status.Ready {
			fmt.Fprintf(w, "Images:  %d\n", status.TotalImages)
			if status.VectorDim > 0 {
				fmt.Fprintf(w, "Vectors: %d dims, %s index, %s\n", status.VectorDim, status.IndexType, status.Metric)
			}
		}
		if status.Error != "" {
			fmt.Fprintf(w, "Error:   %s\n", status.Error)
		}

		names := make([]string, 0, len(hr.Checks))
		for k := range hr.Checks {
			names = append(names, k)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "Health:  %s\n", hr.Status)
		for _, n := range names {
			fmt.Fprintf(w, "  %-8s %s\n", n, hr.Checks[n])
		}

		if hr.Status != health.Healthy {
			return fmt.Errorf("backend degraded")
		}
		return nil
	}
}
