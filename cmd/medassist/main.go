package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/medassist-rag/medassist/internal/api"
	"github.com/medassist-rag/medassist/internal/config"
	"github.com/medassist-rag/medassist/internal/logger"
	"github.com/medassist-rag/medassist/internal/session"
	"github.com/medassist-rag/medassist/internal/tui"
	"github.com/medassist-rag/medassist/internal/utils"
)

var (
	Version = "dev"
)

type options struct {
	version  bool
	help     bool
	verbose  bool
	apiBase  string
	route    string
	report   string
	question string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("medassist", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.version, "v", false, "show version information")
	fs.BoolVar(&opts.version, "version", false, "show version information")
	fs.BoolVar(&opts.help, "h", false, "show help information")
	fs.BoolVar(&opts.help, "help", false, "show help information")
	fs.BoolVar(&opts.verbose, "verbose", false, "also write logs to stderr in one-shot mode")
	fs.StringVar(&opts.apiBase, "api-base", "", "override the API base URL")
	fs.StringVar(&opts.route, "route", "/", "start page: /, /analyze or /about")
	fs.StringVar(&opts.report, "report", "", "report image to upload (one-shot mode)")
	fs.StringVar(&opts.question, "q", "", "question to ask about the report (one-shot mode)")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	// flag 包自己的错误已经写到 stderr，这里只补充自定义校验
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected argument %q", fs.Arg(0))
		fmt.Fprintln(stderr, err)
		return opts, err
	}
	if opts.question != "" && strings.TrimSpace(opts.report) == "" {
		err := errors.New("-q requires -report <path>")
		fmt.Fprintln(stderr, err)
		return opts, err
	}
	return opts, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "MedAssist RAG - ask questions about your medical reports")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  medassist                          Start the interactive TUI")
	fmt.Fprintln(w, "  medassist -route /analyze          Start on the Analyze page")
	fmt.Fprintln(w, "  medassist -report <img> -q <text>  Upload a report, ask once and print the answer")
	fmt.Fprintln(w, "  medassist -api-base <url>          Override the API base URL")
	fmt.Fprintln(w, "  medassist -v, --version            Show version information")
	fmt.Fprintln(w, "  medassist -h, --help               Show help information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands in TUI:")
	fmt.Fprintln(w, "  /upload <path>       Upload a report image")
	fmt.Fprintln(w, "  /clear               Reset the conversation")
	fmt.Fprintln(w, "  /export [md|html]    Save the transcript")
	fmt.Fprintln(w, "  /copy [answer|text]  Copy the last answer or the extracted text")
	fmt.Fprintln(w, "  /go <page>           Switch page (home, analyze, about)")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Config: %s\n", utils.GetConfigPathForDisplay())
	fmt.Fprintf(w, "Environment: %s overrides api_base_url\n", config.APIBaseEnv)
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	switch {
	case opts.version:
		fmt.Printf("MedAssist RAG %s\n", Version)
		os.Exit(0)
	case opts.help:
		printUsage(os.Stdout)
		os.Exit(0)
	}

	// 添加panic恢复
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "程序发生panic: %v\n", r)
			fmt.Fprintln(os.Stderr, "堆栈跟踪:")
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if opts.apiBase != "" {
		cfg.APIBaseURL = config.NormalizeBaseURL(opts.apiBase)
	}

	oneShot := opts.report != "" || opts.question != ""
	log := logger.New(logger.Options{
		FilePath: cfg.LogFile,
		Level:    cfg.LogLevel,
		Console:  oneShot && opts.verbose,
	})
	defer log.Sync()

	log.Info("main", "starting", map[string]interface{}{
		"version":  Version,
		"api_base": cfg.APIBaseURL,
		"one_shot": oneShot,
	})

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, api.WithLogger(log))

	if oneShot {
		code := runOneShot(context.Background(), os.Stdout, os.Stderr, cfg, client, log, opts.report, opts.question)
		_ = log.Sync()
		os.Exit(code)
	}

	// 检查是否在交互式终端中
	if !isTerminal() {
		fmt.Fprintln(os.Stderr, "MedAssist RAG 运行在非交互式模式")
		fmt.Fprintln(os.Stderr, "请在交互式终端中运行，或使用 -report <img> -q <question>")
		os.Exit(1)
	}

	route, ok := tui.ParseRoute(opts.route)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown route %q (use /, /analyze or /about)\n", opts.route)
		os.Exit(2)
	}

	tui.Version = Version
	model := tui.InitialModel(cfg, client, log, tui.WithRoute(route))
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error("main", "tui exited with error", map[string]interface{}{"error": err})
		fmt.Fprintf(os.Stderr, "程序运行错误: %v\n", err)
		os.Exit(1)
	}
}

// runOneShot 同步完成上传与提问，打印消息记录并返回退出码
func runOneShot(ctx context.Context, out, errOut io.Writer, cfg *config.Config, b session.Backend, log logger.Logger, report, question string) int {
	if strings.TrimSpace(report) == "" {
		fmt.Fprintln(errOut, "a report image is required: -report <path>")
		return 2
	}

	s := session.New()
	failed := false

	if err := s.Upload(ctx, b, utils.ExpandHome(report), cfg.MaxUploadBytes); err != nil {
		log.Error("main", "upload failed", map[string]interface{}{"path": report, "error": err})
		failed = true
	} else if strings.TrimSpace(question) != "" {
		sent, err := s.Ask(ctx, b, question)
		if err != nil {
			log.Error("main", "ask failed", map[string]interface{}{"error": err})
			failed = true
		} else if !sent {
			failed = true
		}
	}

	printTranscript(out, errOut, s)
	if failed {
		return 1
	}
	return 0
}

var labelStyle = lipgloss.NewStyle().Bold(true)

func printTranscript(out, errOut io.Writer, s *session.Session) {
	// 问候语只对交互界面有意义
	for _, msg := range s.Messages()[1:] {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render(msg.Label()+":"), msg.Text)
	}
	if s.LastError() != "" {
		fmt.Fprintf(errOut, "error: %s\n", s.LastError())
	}
}

func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
