package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-guide/core"
	"github.com/koscakluka/ema-guide/core/events"
	"github.com/koscakluka/ema-guide/internal/config"
	"github.com/koscakluka/ema-guide/internal/metrics"
	"github.com/koscakluka/ema-guide/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCommand() *cobra.Command {
	var scenario, lang string
	var headless bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Activate the guide on the local microphone and speaker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if scenario != "" {
				cfg.Scenario = scenario
			}
			if lang != "" {
				cfg.Language = lang
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, !headless)
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", "", "scenario to activate, overrides the config")
	cmd.Flags().StringVar(&lang, "language", "", "start language (en or sw), overrides the config")
	cmd.Flags().BoolVar(&headless, "headless", false, "run without the terminal dashboard")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, withDashboard bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	device, err := openAudio(cfg.Audio)
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	defer device.Close()

	preferences, closePreferences, err := openPreferences(ctx, cfg.Preferences)
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	defer closePreferences()

	player, err := newSynthesizer(cfg.Synthesis, device)
	if err != nil {
		return err
	}

	exporter := metrics.NewExporter()
	var program atomic.Pointer[tea.Program]
	dashboard := func(event events.Event) {
		if p := program.Load(); p != nil {
			tui.Observer(p)(event)
		}
	}

	guide, err := orchestration.NewController(
		orchestration.WithRecognizer(newRecognizer(cfg.Recognition, device.EncodingInfo())),
		orchestration.WithSynthesizer(player),
		orchestration.WithInterItemDelay(cfg.Synthesis.InterItemDelay),
		orchestration.WithPreferences(preferences),
		orchestration.WithVoiceActivityParams(voiceParams(*cfg, device.EncodingInfo())),
		orchestration.WithEventObserver(exporter.Observe),
		orchestration.WithEventObserver(dashboard),
	)
	if err != nil {
		return fmt.Errorf("failed to create guide: %w", err)
	}
	defer func() {
		if err := guide.Close(); err != nil {
			logger.Warn("failed to close guide", "error", err)
		}
	}()

	if err := activate(ctx, guide, cfg); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return guide.Listen(gctx, device)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return exporter.Serve(gctx, cfg.Metrics.Addr)
		})
	}
	if withDashboard {
		session := guide.Session()
		p := tea.NewProgram(
			tui.NewModel(guide, cfg.Scenario, session.Language.String()),
			tea.WithAltScreen(),
			tea.WithContext(gctx),
		)
		program.Store(p)
		g.Go(func() error {
			defer cancel()
			_, err := p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	if deactivateErr := guide.Deactivate(context.Background()); deactivateErr != nil {
		logger.Warn("failed to deactivate guide", "error", deactivateErr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// activate starts the configured scenario. Without a configured language the
// guide resumes in the stored one.
func activate(ctx context.Context, guide *orchestration.Controller, cfg *config.Config) error {
	if err := guide.Activate(ctx, cfg.Scenario, cfg.StartLanguage()); err != nil {
		return fmt.Errorf("failed to activate guide: %w", err)
	}
	logger.Info("guide active", "scenario", cfg.Scenario, "language", guide.Session().Language.String())
	return nil
}
