package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/proofbyoutput/proofcoach/internal/api"
	"github.com/proofbyoutput/proofcoach/internal/appupdate"
	"github.com/proofbyoutput/proofcoach/internal/config"
	"github.com/proofbyoutput/proofcoach/internal/core"
	"github.com/proofbyoutput/proofcoach/internal/diagnose"
	"github.com/proofbyoutput/proofcoach/internal/filesystem"
	"github.com/proofbyoutput/proofcoach/internal/llm"
	"github.com/proofbyoutput/proofcoach/internal/record"
	"github.com/proofbyoutput/proofcoach/internal/styles"
	"github.com/proofbyoutput/proofcoach/internal/tui"
)

var BUILD_VERSION = "dev"

var serveFlag = flag.Bool("serve", false, "run the HTTP server with the web form")
var addrFlag = flag.String("addr", "", "HTTP listen address (overrides config)")
var topicFlag = flag.String("topic", "", "diagnose an explanation read from stdin for this topic")
var historyFlag = flag.Int("history", 0, "print the most recent N diagnoses and exit")

var helpFlag = flag.Bool("h", false, "display help information")
var versionFlag = flag.Bool("ver", false, "display build version")

const helpText = `proofcoach - 「わかったつもり」を説明して検証するコーチングツール

USAGE:
  proofcoach [options]

MODES:
  proofcoach                        Start the interactive terminal UI
  proofcoach -serve                 Start the HTTP API and web form
  proofcoach -topic "..." < essay   Diagnose an explanation read from stdin
  proofcoach -history 10            Print the most recent diagnoses

Diagnosis results are saved as JSON under ~/.proofcoach/outputs/.
Configuration lives in ~/.proofcoach/config.yaml; OPENAI_API_KEY is honored.

OPTIONS:
`

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(BUILD_VERSION)
		return
	}

	if *helpFlag {
		fmt.Print(helpText)
		flag.PrintDefaults()
		return
	}

	cfg, err := config.Load(core.ConfigFile())
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR(err.Error()))
		os.Exit(1)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("-------- new proofcoach session --------", zap.Any("args", os.Args))

	// Check for updates in background
	updateChannel := appupdate.HandleSelfUpdate(
		BUILD_VERSION,
		logger,
		filesystem.DefaultFileSystem{},
		appupdate.DefaultUpdater{},
	)

	records, err := record.NewManager(outputsDir(cfg), core.HistoryFile(), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR(err.Error()))
		os.Exit(1)
	}

	diagnoser := newDiagnoser(cfg, logger)

	err = run(cfg, diagnoser, records, logger)

	notifyUpdate(updateChannel)

	if err != nil {
		logger.Error("unhandled error", zap.Error(err))
		fmt.Fprintln(os.Stderr, styles.ERROR(err.Error()))
		os.Exit(1)
	}
}

// newDiagnoser wires the diagnoser. A missing API key must leave the
// ChatCompleter interface itself nil, not hold a nil *llm.Client, so the
// diagnoser reports it as a validation error instead of dereferencing nil.
func newDiagnoser(cfg *config.Config, logger *zap.Logger) *diagnose.Diagnoser {
	var client diagnose.ChatCompleter
	if c := llm.NewClient(llm.Options{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Logger:  logger,
	}); c != nil {
		client = c
	}

	return diagnose.New(diagnose.Options{
		Client:      client,
		Models:      cfg.Models,
		Temperature: cfg.Temperature,
		MinChars:    cfg.MinChars,
		Logger:      logger,
	})
}

func run(cfg *config.Config, diagnoser *diagnose.Diagnoser, records *record.Manager, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// proofcoach -serve
	if *serveFlag {
		addr := cfg.ListenAddr
		if *addrFlag != "" {
			addr = *addrFlag
		}
		server := api.NewServer(api.Options{
			Diagnoser: diagnoser,
			Records:   records,
			Logger:    logger,
			Version:   BUILD_VERSION,
		})
		fmt.Println(styles.NOTICE(fmt.Sprintf("proofcoach %s listening on http://%s", BUILD_VERSION, addr)))
		return server.Run(ctx, addr)
	}

	// proofcoach -history 10
	if *historyFlag > 0 {
		return printHistory(records, *historyFlag)
	}

	// proofcoach -topic "..." < essay.txt
	if *topicFlag != "" {
		return diagnoseOnce(ctx, diagnoser, records, *topicFlag, os.Stdin)
	}

	// proofcoach
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return tui.Run(tui.Options{
			Diagnoser:    diagnoser,
			Records:      records,
			Logger:       logger,
			Version:      BUILD_VERSION,
			HistoryLimit: cfg.HistoryLimit,
		})
	}

	return fmt.Errorf("stdin is not a terminal; use -topic to diagnose piped input")
}

// diagnoseOnce runs a single diagnosis against an explanation read from r and
// prints the rendered result.
func diagnoseOnce(ctx context.Context, diagnoser *diagnose.Diagnoser, records *record.Manager, topic string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read explanation: %w", err)
	}
	explanation := strings.TrimSpace(string(data))

	result, err := diagnoser.Diagnose(ctx, topic, explanation)
	if err != nil {
		return err
	}

	rec, err := records.Save(topic, explanation, result)
	if err != nil {
		return err
	}

	var prevScore *int
	if prev, ok, err := records.PreviousScore(topic, rec.CreatedAt); err == nil && ok {
		prevScore = &prev
	}
	fmt.Println(tui.RenderRecord(rec, prevScore, outputWidth()))
	fmt.Println(styles.LOG("saved: " + rec.ID))
	return nil
}

func printHistory(records *record.Manager, limit int) error {
	entries, err := records.Recent(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("診断履歴はまだありません。")
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("%s | rank: %s | score: %3d | %s\n",
			entry.RecordedAt.Format("2006-01-02 15:04"),
			entry.RankValue(),
			entry.Score,
			entry.Topic,
		)
	}
	return nil
}

func notifyUpdate(updateChannel chan string) {
	select {
	case latest, ok := <-updateChannel:
		if ok && latest != "" {
			fmt.Println(styles.NOTICE(fmt.Sprintf("proofcoach %s is available (current: %s)", latest, BUILD_VERSION)))
		}
	default:
		// The check has not finished; fall back to what the last run recorded.
		latest := appupdate.ReadLatestVersion(filesystem.DefaultFileSystem{})
		if latest != "" && latest != BUILD_VERSION {
			fmt.Println(styles.NOTICE(fmt.Sprintf("proofcoach %s is available (current: %s)", latest, BUILD_VERSION)))
		}
	}
}

func outputsDir(cfg *config.Config) string {
	if cfg.OutputsDir != "" {
		return cfg.OutputsDir
	}
	return core.OutputsDir()
}

func outputWidth() int {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
			return min(width, 100)
		}
	}
	return 100
}

func initializeLogger(cfg *config.Config) (*zap.Logger, error) {
	logLevel, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	if BUILD_VERSION == "dev" {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{
		core.LogFile(),
	}

	// Logs only go to file to avoid interfering with the Bubble Tea UI.
	// Use `tail -f ~/.proofcoach/proofcoach.log` to monitor in real time.

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}
