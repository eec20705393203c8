package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/encodeous/rpl/core"
	"github.com/encodeous/rpl/sim"
	"github.com/spf13/cobra"

	_ "github.com/encodeous/rpl/perf"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long:  `This will start every node of the simulation config and run until interrupted or until duration_ms elapses.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readSimConfig(configPath)
		if err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		if addr, _ := cmd.Flags().GetString("metrics"); addr != "" {
			go func() {
				slog.Info("serving metrics", "addr", addr, "path", "/debug/metrics")
				err := http.ListenAndServe(addr, nil)
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("metrics server stopped", "err", err)
				}
			}()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		n, err := sim.New(ctx, *cfg, level)
		if err != nil {
			panic(err)
		}

		done := make(chan error, 1)
		go func() {
			done <- n.Run(ctx)
		}()

		if ok, _ := cmd.Flags().GetBool("trace"); ok {
			events := make(chan any, 256)
			if err := n.Subscribe(events); err != nil {
				slog.Warn("unable to subscribe to traces", "err", err)
			}
		loop:
			for {
				select {
				case ev := <-events:
					if te, ok := ev.(core.TraceEvent); ok {
						fmt.Println(te.String())
					}
				case err = <-done:
					break loop
				}
			}
		} else {
			err = <-done
		}
		if err != nil {
			panic(err)
		}
	},
	GroupID: "ny",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolP("trace", "t", false, "Print protocol events to stdout")
	runCmd.Flags().StringP("metrics", "m", "", "Serve metrics over http on this address")
}
