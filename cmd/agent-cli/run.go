package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbenliogludev/webagent/internal/action"
	"github.com/nbenliogludev/webagent/internal/agent"
	"github.com/nbenliogludev/webagent/internal/browser"
	"github.com/nbenliogludev/webagent/internal/config"
	"github.com/nbenliogludev/webagent/internal/llm"
	"github.com/nbenliogludev/webagent/internal/observability"
	"github.com/nbenliogludev/webagent/internal/tracking"
)

var errNoInstruction = errors.New("no instruction given")

func newRunCmd(a *app) *cobra.Command {
	var (
		instruction string
		startURL    string
	)

	cmd := &cobra.Command{
		Use:   "run [instruction]",
		Short: "Run the agent until it answers the instruction",
		Long: `Run opens a browser and lets the model drive it until it replies with a
final answer, which is printed to stdout. Without an instruction argument or
--instruction the instruction is read from stdin. Ctrl+C stops the agent after
the current step.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInstruction(instruction, args, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cmd.OutOrStdout(), text, startURL)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&instruction, "instruction", "i", "", "task for the agent")
	f.StringVar(&startURL, "start-url", "", "open this page and observe it before the first request")
	f.String("engine", config.EnginePlaywright, "browser engine: playwright or chromedp")
	f.Bool("headless", true, "run the browser without a window")
	f.Int("max-steps", 0, "stop after this many steps (0 runs until the model answers)")
	f.String("model", "", "model name")

	_ = a.v.BindPFlag("browser.engine", f.Lookup("engine"))
	_ = a.v.BindPFlag("browser.headless", f.Lookup("headless"))
	_ = a.v.BindPFlag("agent.max_steps", f.Lookup("max-steps"))
	_ = a.v.BindPFlag("llm.model", f.Lookup("model"))

	return cmd
}

// readInstruction prefers the flag, then positional args, then one line of in.
func readInstruction(flag string, args []string, in io.Reader, prompt io.Writer) (string, error) {
	text := strings.TrimSpace(flag)
	if text == "" {
		text = strings.TrimSpace(strings.Join(args, " "))
	}
	if text == "" {
		fmt.Fprint(prompt, "Enter your instructions: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read instruction: %w", err)
		}
		text = strings.TrimSpace(line)
	}
	if text == "" {
		return "", errNoInstruction
	}
	return text, nil
}

func (a *app) run(ctx context.Context, out io.Writer, instruction, startURL string) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := observability.GetLogger()

	session, err := openSession(cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("browser close failed", zap.Error(err))
		}
	}()

	if startURL != "" {
		if err := session.Navigate(ctx, startURL); err != nil {
			return fmt.Errorf("open start url: %w", err)
		}
	}

	client, err := llm.NewOpenAIClient(llm.OpenAIOptions{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		return err
	}

	observer := browser.NewObserver(browser.TagRenderer{}, browser.ObserverOptions{
		SettleDelay:    cfg.Agent.SettleDelay,
		ScreenshotPath: cfg.Agent.ScreenshotPath,
		TextPath:       cfg.Agent.PageTextPath,
	}, logger)
	tracker := tracking.NewClient(cfg.Tracker.BaseURL(), cfg.Tracker.Timeout)

	signals := agent.NewSignalController()
	defer signals.Close()

	ag := agent.NewAgent(session, observer, client, agent.NewExecutor(tracker, logger), agent.Options{
		HistoryWindow:    cfg.Agent.HistoryWindow,
		RateLimitRetries: cfg.Agent.RateLimitRetries,
		RateLimitBackoff: cfg.Agent.RateLimitBackoff,
		MaxSteps:         cfg.Agent.MaxSteps,
		ObserveFirst:     startURL != "",
		Parser:           action.Parser{RepairJSON: cfg.Agent.RepairJSON},
	}, logger).WithInterrupt(signals.Interrupted)

	answer, err := ag.Run(ctx, instruction)
	if errors.Is(err, agent.ErrInterrupted) {
		fmt.Fprintln(out, "Interrupted.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, answer)
	return nil
}

func openSession(cfg config.BrowserConfig, logger *zap.Logger) (browser.Session, error) {
	if cfg.Engine == config.EngineChromedp {
		s, err := browser.NewChromeSession(browser.ChromeOptions{
			Headless:       cfg.Headless,
			NoSandbox:      cfg.NoSandbox,
			UserDataDir:    cfg.UserDataDir,
			ViewportWidth:  cfg.ViewportWidth,
			ViewportHeight: cfg.ViewportHeight,
			Timeout:        cfg.DefaultTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	m, err := browser.NewManager(browser.ManagerOptions{
		Headless:          cfg.Headless,
		UserDataDir:       cfg.UserDataDir,
		ViewportWidth:     cfg.ViewportWidth,
		ViewportHeight:    cfg.ViewportHeight,
		DefaultTimeout:    cfg.DefaultTimeout,
		NavigationTimeout: cfg.NavigationTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}
