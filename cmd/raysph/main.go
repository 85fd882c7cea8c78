package main

import (
	"fmt"
	"os"

	"diesel.com/raysph/app"
	"diesel.com/raysph/app/viewer"
	"diesel.com/raysph/config"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	configFile    string
	particles     int
	frames        int
	headless      bool
	validateEvery int
	stride        int
	profileMode   string
	printConfig   bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "raysph",
		Short:        "Ray traced SPH fluid simulation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "ini config file, defaults are used when empty")
	flags.IntVarP(&opts.particles, "particles", "n", 0, "particle count, overrides the config file")
	flags.IntVar(&opts.frames, "frames", 1000, "frames to simulate in headless mode")
	flags.BoolVar(&opts.headless, "headless", false, "simulate without opening a window")
	flags.IntVar(&opts.validateEvery, "validate", 0, "check the traced passes against a brute force reference every n frames")
	flags.IntVar(&opts.stride, "stride", 64, "validate every n-th particle")
	flags.StringVar(&opts.profileMode, "profile", "", "write a cpu or mem profile")
	flags.BoolVar(&opts.printConfig, "print-config", false, "print an example config file and exit")
	return cmd
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.Load(opts.configFile); err != nil {
			return nil, err
		}
	}
	if opts.particles > 0 {
		cfg.Simulation.Particles = opts.particles
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options) error {
	if opts.printConfig {
		fmt.Fprint(cmd.OutOrStdout(), config.ExampleConfig)
		return nil
	}

	switch opts.profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q, want cpu or mem", opts.profileMode)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	scene, err := app.NewScene(cfg, logger)
	if err != nil {
		return err
	}

	if opts.headless {
		res, err := scene.RunHeadless(app.HeadlessOptions{
			Frames:        opts.frames,
			ValidateEvery: opts.validateEvery,
			Stride:        opts.stride,
		})
		if err != nil {
			return err
		}
		if opts.validateEvery > 0 {
			logger.WithFields(logrus.Fields{
				"density_error": res.Validation.MaxDensityError,
				"accel_error":   res.Validation.MaxAccelError,
				"checked":       res.Validation.Checked,
			}).Info("validation")
		}
		return nil
	}
	return viewer.Run(scene, cfg.Window, logger)
}
