// Command askdev runs the chat-assistant dispatch service with a console
// transport for local operation.
//
// Usage:
//
//	askdev serve --config config.yaml
//	askdev validate --config config.yaml
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/askdev-bot/askdev/pkg/config"
	"github.com/askdev-bot/askdev/pkg/dispatch"
	"github.com/askdev-bot/askdev/pkg/i18n"
	"github.com/askdev-bot/askdev/pkg/llms"
	"github.com/askdev-bot/askdev/pkg/logger"
	"github.com/askdev-bot/askdev/pkg/metrics"
	"github.com/askdev-bot/askdev/pkg/ratelimit"
	"github.com/askdev-bot/askdev/pkg/server"
	"github.com/askdev-bot/askdev/pkg/session"
	"github.com/askdev-bot/askdev/pkg/transport"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the assistant with a console transport."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"config.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("askdev version %s\n", version)
	return nil
}

// ValidateCmd validates a configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if _, err := config.LoadConfig(cli.Config); err != nil {
		return err
	}
	fmt.Println("Configuration is valid.")
	return nil
}

// ServeCmd runs the dispatch pipeline against stdin/stdout.
type ServeCmd struct {
	User string `help:"User identifier for the console session." default:"local"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	if err := config.LoadEnvFiles(); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return err
	}

	cleanup, err := initLogger(cli, &cfg.Logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	sessions := session.NewStore(session.Config{
		DefaultLanguage: cfg.Chat.Language(),
		MaxHistory:      cfg.History.MaxTurns,
	})
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Limit:  cfg.Limits.RateLimit,
		Period: cfg.Limits.RatePeriod(),
	})
	m := metrics.New(func() float64 { return float64(sessions.Count()) })
	messenger := transport.NewConsole(os.Stdout)

	dispatcher, err := dispatch.New(dispatch.Options{
		Sessions:     sessions,
		Limiter:      limiter,
		LLM:          llms.NewClient(&cfg.LLM),
		Messenger:    messenger,
		Subs:         transport.AlwaysSubscribed{},
		Catalog:      i18n.NewCatalog(cfg.Chat.Language()),
		ContextTurns: cfg.History.ContextTurns,
		ChunkLimit:   cfg.Chat.ChunkLimit,
		ChunkPause:   cfg.Chat.ChunkPause(),
		Metrics:      m,
	})
	if err != nil {
		return err
	}

	admin := server.NewAdmin(cfg.Server.AdminPort, sessions, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return admin.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return consoleLoop(gctx, dispatcher, c.User)
	})

	slog.Info("Assistant ready", "model", cfg.LLM.Model, "user", c.User)
	return g.Wait()
}

// consoleLoop dispatches each stdin line as a message from userID.
// Commands: /lang <code> switches language, /reset clears history.
func consoleLoop(ctx context.Context, d *dispatch.Dispatcher, userID string) error {
	const chatID = "console"
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "/lang "):
			lang := i18n.Language(strings.TrimSpace(strings.TrimPrefix(line, "/lang ")))
			if err := d.SetLanguage(ctx, userID, chatID, lang); err != nil {
				fmt.Printf("unsupported language %q\n", lang)
			}
		case line == "/reset":
			d.Reset(ctx, userID, chatID)
		case line == "/quit":
			return nil
		default:
			if err := d.HandleMessage(ctx, userID, chatID, line); err != nil {
				slog.Error("Message handling failed", "error", err)
			}
		}
	}
	return scanner.Err()
}

// initLogger applies CLI flags over config file values over defaults.
func initLogger(cli *CLI, cfg *config.LoggerConfig) (func(), error) {
	levelStr := cli.LogLevel
	if levelStr == "" {
		levelStr = cfg.Level
	}
	format := cli.LogFormat
	if format == "" {
		format = cfg.Format
	}
	logFile := cli.LogFile
	if logFile == "" {
		logFile = cfg.File
	}

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if logFile != "" {
		file, cleanupFn, err := logger.OpenLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(level, output, format)
	return cleanup, nil
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("askdev"),
		kong.Description("Chat assistant dispatch service."),
		kong.UsageOnError(),
	)
	if err := kctx.Run(cli); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
