package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/jlptquiz/internal/handler"
	appI18n "github.com/pavelanni/jlptquiz/internal/i18n"
	"github.com/pavelanni/jlptquiz/internal/importer"
	"github.com/pavelanni/jlptquiz/internal/llm"
	"github.com/pavelanni/jlptquiz/internal/model"
	"github.com/pavelanni/jlptquiz/internal/quiz"
	"github.com/pavelanni/jlptquiz/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jlptquiz",
		Short: "JLPT N2 quiz trainer",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), seedCmd(), exportCmd(), explainCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `jlptquiz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "jlptquiz.db", "SQLite database path")
	f.StringP("lang", "l", "ru", "Message language (ru, en, ja)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":3001", "HTTP listen address")
	f.StringSlice("catalog", nil, "Catalog JSON files imported at startup (repeatable)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /jlpt)")
	f.StringSlice("cors-origins", []string{"http://localhost:5173"}, "Origins allowed to call the API")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <files...>",
		Short: "Import catalog JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	addCommonFlags(cmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in sample catalog",
		RunE:  runSeed,
	}
	addCommonFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export session results as JSON",
		RunE:  runExport,
	}
	addCommonFlags(cmd)
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Draft missing question explanations with an LLM",
		RunE:  runExplain,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.IntP("limit", "n", 20, "Maximum number of questions to explain")
	f.Bool("dry-run", false, "Print explanations without storing them")
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("JLPTQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("jlptquiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/jlptquiz")
	v.AddConfigPath("/etc/jlptquiz")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// setup configures logging and messages, then opens the database.
func setup(cmd *cobra.Command) (*viper.Viper, *store.Store, context.Context, error) {
	v := viperForCmd(cmd)
	setupLogging(v)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return nil, nil, nil, fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return v, db, ctx, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, db, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := importFiles(ctx, cmd.ErrOrStderr(), db, v.GetStringSlice("catalog")); err != nil {
		return err
	}

	cfg := model.ServerConfig{
		BasePath:       handler.NormalizeBasePath(v.GetString("base-path")),
		AllowedOrigins: v.GetStringSlice("cors-origins"),
		Lang:           v.GetString("lang"),
	}
	h, err := handler.New(db, quiz.NewBuilder(db, nil), quiz.NewRunner(db), cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", cfg.Lang,
		"base_path", cfg.BasePath,
		"cors_origins", cfg.AllowedOrigins,
	)
	return http.ListenAndServe(addr, h.Router())
}

func runImport(cmd *cobra.Command, args []string) error {
	_, db, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	return importFiles(ctx, cmd.OutOrStdout(), db, args)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	_, db, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := importer.LoadSample(ctx, db)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	report(ctx, cmd.OutOrStdout(), res)
	return nil
}

func importFiles(ctx context.Context, w io.Writer, db *store.Store, paths []string) error {
	for _, path := range paths {
		res, err := importer.LoadFile(ctx, db, path)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		report(ctx, w, res)
	}
	return nil
}

func report(ctx context.Context, w io.Writer, res importer.Result) {
	switch res.Status {
	case importer.Unchanged:
		fmt.Fprintln(w, appI18n.Td(ctx, "ImportSkipped", map[string]any{"Path": res.Path}))
	case importer.Changed:
		fmt.Fprintln(w, appI18n.Td(ctx, "ImportChanged", map[string]any{"Path": res.Path}))
	default:
		slog.Info("imported catalog", "path", res.Path, "questions", res.Questions, "passages", res.Passages)
		fmt.Fprintf(w, "%s: %s\n", res.Path, appI18n.Tp(ctx, "QuestionsImported", res.Questions))
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	v, db, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	export, err := db.ExportAllSessions(ctx)
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	slog.Info("exported sessions", "count", len(export.Sessions), "output", outPath)
	return nil
}

func runExplain(cmd *cobra.Command, _ []string) error {
	v, db, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"))
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	questions, err := db.ListQuestionsWithoutExplanation(ctx, v.GetInt("limit"))
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}

	lang := v.GetString("lang")
	dryRun := v.GetBool("dry-run")
	explained := 0
	for _, q := range questions {
		var passage *model.ReadingPassage
		if q.PassageID != nil {
			p, err := db.GetPassage(ctx, *q.PassageID)
			if err != nil {
				return fmt.Errorf("question %d: %w", q.ID, err)
			}
			passage = &p
		}

		text, err := client.Explain(ctx, q, passage, lang)
		if err != nil {
			slog.Warn("explanation failed", "question_id", q.ID, "error", err)
			continue
		}
		if dryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n%s\n\n", q.ID, q.Content, text)
			continue
		}
		if err := db.SetExplanation(ctx, q.ID, text); err != nil {
			return fmt.Errorf("store explanation for question %d: %w", q.ID, err)
		}
		explained++
	}

	slog.Info("explanations drafted", "candidates", len(questions), "stored", explained, "dry_run", dryRun)
	return nil
}
