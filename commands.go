package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voxelradiosity/cache"
	"voxelradiosity/config"
	"voxelradiosity/logger"
	"voxelradiosity/radiosity"
	"voxelradiosity/server"
	"voxelradiosity/solver"
)

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the solver and stream radiosity to websocket clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				settings.Server.Addr = addr
			}
			scene, err := settings.BuildScene()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, recv := solver.New(scene, settings.SolverOptions())
			defer recv.Close()
			s.Start()

			go watchSettings(ctx, root.configPath, settings, s)

			srv := server.New(s, settings.UpdateInterval())
			return srv.ListenAndServe(ctx, settings.Server.Addr, recv.Events())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

// watchSettings turns settings file edits into solver inputs
func watchSettings(ctx context.Context, path string, current *config.Settings, s *solver.Solver) {
	err := config.Watch(ctx, path, func(next *config.Settings) {
		for _, in := range config.Changes(current, next) {
			s.Send(in)
		}
		current = next
	})
	if err != nil {
		logger.Logger().Warn("settings watcher stopped", "err", err)
	}
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	var iterations int
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build (or load) the form factors and run a fixed number of iterations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations <= 0 {
				return fmt.Errorf("--iterations must be positive, got %d", iterations)
			}
			settings, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			scene, err := settings.BuildScene()
			if err != nil {
				return err
			}
			opts := settings.SolverOptions()
			opts.MaxIterations = iterations

			s, recv := solver.New(scene, opts)
			s.Start()
			out := cmd.OutOrStdout()
			for ev := range recv.Events() {
				fmt.Fprintln(out, ev)
			}
			if err := s.Wait(); err != nil {
				return err
			}

			var total float32
			s.Buffer().Read(func(r, g, b []float32) {
				for i := range r {
					total += r[i] + g[i] + b[i]
				}
			})
			fmt.Fprintf(out, "%d planes, %d iterations, total radiosity %.4f\n", scene.Len(), s.Buffer().Iteration(), total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 10, "iterations to run after the build")
	return cmd
}

func newInfoCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print scene statistics and cache status",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			scene, err := settings.BuildScene()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			size := scene.Grid.Size()
			digest := cache.Digest(scene)
			fmt.Fprintf(out, "grid      %dx%dx%d, %d solid\n", size.X, size.Y, size.Z, scene.Grid.SolidCount())
			fmt.Fprintf(out, "planes    %d\n", scene.Len())
			fmt.Fprintf(out, "digest    %s\n", digest)

			path := settings.Solver.CachePath
			if path == "" {
				fmt.Fprintln(out, "cache     disabled")
				return nil
			}
			extents, err := cache.Load(path, digest)
			switch {
			case err == nil:
				fmt.Fprintf(out, "cache     %s: %d form factors\n", path, radiosity.CountCoefficients(extents))
			case errors.Is(err, os.ErrNotExist):
				fmt.Fprintf(out, "cache     %s: missing\n", path)
			default:
				fmt.Fprintf(out, "cache     %s: unusable (%v)\n", path, err)
			}
			return nil
		},
	}
}
