package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ritzau/netview/pkg/config"
	"github.com/ritzau/netview/pkg/logging"
	"github.com/ritzau/netview/pkg/model"
	"github.com/ritzau/netview/pkg/output"
	"github.com/ritzau/netview/pkg/render"
	"github.com/ritzau/netview/pkg/view"
	"github.com/ritzau/netview/pkg/watcher"
	"github.com/ritzau/netview/pkg/web"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// defaultView is the view id the command line network is mounted under
const defaultView = "default"

func main() {
	flags := pflag.NewFlagSet("netview", pflag.ExitOnError)
	config.RegisterFlags(flags)
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
	if cfg.ConfigFile != "" {
		logging.Debug("config loaded", "file", cfg.ConfigFile)
	}

	switch {
	case cfg.Inspect:
		err = inspect(cfg)
	case cfg.Render != "":
		err = renderSVG(cfg)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = serve(ctx, cfg)
	}
	if err != nil {
		logging.Fatal("netview failed", "error", err)
	}
}

func loadNetwork(cfg *config.Config) (*model.NetworkResponse, view.Mode, error) {
	resp, err := model.ReadNetworkFile(cfg.Network)
	if err != nil {
		return nil, 0, err
	}
	mode, err := view.ParseMode(cfg.Mode, resp)
	if err != nil {
		return nil, 0, err
	}
	return resp, mode, nil
}

func inspect(cfg *config.Config) error {
	resp, _, err := loadNetwork(cfg)
	if err != nil {
		return err
	}
	output.PrintNetworkReport(os.Stdout, output.Report{
		Source:   cfg.Network,
		Response: resp,
		Policy:   cfg.Layout,
		ShowAll:  cfg.ShowAll,
	})
	return nil
}

// renderSVG lays the network out headlessly and writes the settled frame
func renderSVG(cfg *config.Config) error {
	resp, mode, err := loadNetwork(cfg)
	if err != nil {
		return err
	}

	v := view.New(defaultView, cfg.View(), nil, view.Manual())
	defer v.Close()
	if err := v.Load(resp, mode); err != nil {
		return err
	}
	if cfg.ShowAll {
		if err := v.SetShowAll(true); err != nil {
			return err
		}
	}

	frames := v.Settle(cfg.SettleFrames)
	logging.Info("layout finished", "frames", frames, "state", v.State().String())

	scene, err := v.Scene()
	if err != nil {
		return err
	}

	f, err := os.Create(cfg.Render)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", cfg.Render, err)
	}
	if err := render.WriteSVG(f, scene); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logging.Info("wrote svg", "path", cfg.Render, "nodes", scene.Stats.Nodes, "edges", scene.Stats.Edges)
	return nil
}

// serve runs the web server, mounting the command line network (if any)
// under the default view and reloading it on change with --watch
func serve(ctx context.Context, cfg *config.Config) error {
	server := web.NewServer(cfg.View())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx, cfg.Port)
	})

	if cfg.Network != "" {
		v := server.Mount(defaultView, cfg.Width, cfg.Height)
		resp, mode, err := loadNetwork(cfg)
		if err != nil {
			logging.Warn("initial network not loaded", "path", cfg.Network, "error", err)
		} else {
			if err := v.Load(resp, mode); err != nil {
				return err
			}
			if cfg.ShowAll {
				if err := v.SetShowAll(true); err != nil {
					return err
				}
			}
		}

		if cfg.Watch {
			g.Go(func() error {
				return watcher.Watch(ctx, cfg.Network, cfg.Mode, v, cfg.WatchQuiet, cfg.WatchMaxWait)
			})
		}
	}

	return g.Wait()
}
