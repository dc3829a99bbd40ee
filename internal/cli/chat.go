package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/abiosoft/ishell/v2"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/querypilot/querypilot/internal/config"
	"github.com/querypilot/querypilot/internal/database"
	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/session"
	"github.com/querypilot/querypilot/internal/tools"
	"github.com/querypilot/querypilot/internal/workflow"
)

const replyWidth = 80

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	sqlStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

type chatOptions struct {
	root       *rootOptions
	userID     string
	userName   string
	serverCmd  string
	serverArgs []string
}

func newChatCmd(root *rootOptions) *cobra.Command {
	opts := &chatOptions{root: root}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

Free text is treated as a request and runs through the full pipeline:
classify intent, execute the generated SQL, phrase the result. Built-in
commands (databases, create, use, history) talk to the tool catalog
directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.userID, "user", "local_user", "User id for the session")
	cmd.Flags().StringVar(&opts.userName, "name", "SQL User", "Display name for the session")
	cmd.Flags().StringVar(&opts.serverCmd, "server", "", "Run tools through an external MCP stdio server command instead of in-process")
	cmd.Flags().StringSliceVar(&opts.serverArgs, "server-arg", nil, "Argument passed to the external MCP server command (repeatable)")

	return cmd
}

func runChat(ctx context.Context, opts *chatOptions) error {
	cfg, err := config.Load(opts.root.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	dispatcher, cleanup, err := buildDispatcher(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := session.Open(cfg.Session.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	record, err := store.Create(ctx, opts.userID, opts.userName, cfg.Database.Root)
	if err != nil {
		return err
	}

	shell := ishell.New()
	shell.Println(bannerStyle.Render(fmt.Sprintf("querypilot %s", Version)))
	shell.Println("Ask me about your data in plain language. Type 'help' for commands, 'exit' to quit.")

	modelCfg := llm.ModelConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	pipeline := workflow.NewPipeline(
		workflow.NewClassifier(provider, modelCfg, cfg.LLM.Timeout),
		workflow.NewResponder(provider, modelCfg, cfg.LLM.Timeout),
		dispatcher,
	)

	state := workflow.NewState(opts.userID, opts.userName, cfg.Database.Root)

	// Profile collection runs once, before the REPL loop starts, so the
	// questions never interleave with spinner output.
	if cfg.Profile.Enabled {
		questions := workflow.DefaultQuestions()
		if cfg.Profile.QuestionsFile != "" {
			questions, err = workflow.LoadQuestions(cfg.Profile.QuestionsFile)
			if err != nil {
				return err
			}
		}
		answers, err := newShellCollector(shell, questions, cfg.Profile.AnswerTimeout).Collect(ctx)
		if err != nil {
			return err
		}
		for field, answer := range answers {
			state.Profile[field] = answer
		}
		state.ProfileCollected = true
	}

	registerToolCommands(ctx, shell, dispatcher)
	shell.AddCmd(&ishell.Cmd{
		Name: "history",
		Help: "show the conversation transcript",
		Func: func(c *ishell.Context) {
			printHistory(c, state)
		},
	})

	shell.NotFound(func(c *ishell.Context) {
		input := strings.TrimSpace(strings.Join(c.RawArgs, " "))
		if input == "" {
			return
		}

		sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		sp.Suffix = " thinking..."
		sp.Start()
		updated, err := pipeline.Run(ctx, withInput(state, input))
		sp.Stop()

		if err != nil {
			color.Red("Turn failed: %v", err)
			return
		}

		if updated.SQLQuery != "" {
			c.Println(sqlStyle.Render("SQL: " + updated.SQLQuery))
		}

		appended := updated.Messages[len(state.Messages):]
		state = updated

		for _, msg := range appended {
			if msg.Role == "assistant" {
				c.Println(wordwrap.String(msg.Content, replyWidth))
			}
		}

		if err := store.AppendTurns(ctx, record.ID, appended); err != nil {
			color.Yellow("Warning: could not persist turn: %v", err)
		}
	})

	shell.Run()
	return nil
}

func withInput(state workflow.State, input string) workflow.State {
	state.CurrentInput = input
	return state
}

// buildProvider constructs the configured LLM provider.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	registry := llm.NewRegistry()
	if err := registry.Register(llm.NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL)); err != nil {
		return nil, err
	}
	if cfg.LLM.Provider == "anthropic" {
		if err := registry.Register(llm.NewAnthropicProvider(cfg.LLM.APIKey)); err != nil {
			return nil, err
		}
	}
	return registry.Get(cfg.LLM.Provider)
}

// buildDispatcher returns the tool dispatcher: in-process by default, or an
// MCP stdio client when --server is given.
func buildDispatcher(ctx context.Context, cfg *config.Config, opts *chatOptions) (tools.Dispatcher, func(), error) {
	if opts.serverCmd != "" {
		d, err := tools.NewMCPDispatcher(ctx, opts.serverCmd, opts.serverArgs...)
		if err != nil {
			return nil, nil, err
		}
		return d, func() { _ = d.Close() }, nil
	}

	manager, err := database.NewManager(cfg.Database.Root,
		database.WithQueryTimeout(cfg.Database.QueryTimeout),
	)
	if err != nil {
		return nil, nil, err
	}
	return tools.NewLocalDispatcher(manager), func() {}, nil
}

// registerToolCommands exposes the tool catalog as REPL built-ins.
func registerToolCommands(ctx context.Context, shell *ishell.Shell, dispatcher tools.Dispatcher) {
	call := func(c *ishell.Context, name string, args map[string]any) {
		result, err := dispatcher.Call(ctx, name, args)
		if err != nil {
			color.Red("Error: %v", err)
			return
		}
		c.Println(result)
	}

	shell.AddCmd(&ishell.Cmd{
		Name: "databases",
		Help: "list available databases",
		Func: func(c *ishell.Context) {
			call(c, tools.ToolListDatabases, map[string]any{})
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "create",
		Help: "create <name>: create a database and make it active",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: create <name>")
				return
			}
			call(c, tools.ToolCreateDatabase, map[string]any{"db_name": c.Args[0]})
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "use",
		Help: "use <name>: switch the active database",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: use <name>")
				return
			}
			call(c, tools.ToolSwitchDatabase, map[string]any{"db_name": c.Args[0]})
		},
	})
}

// printHistory renders the transcript as a table.
func printHistory(c *ishell.Context, state workflow.State) {
	if len(state.Messages) == 0 {
		c.Println("No conversation yet.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Role", "Content"})
	for i, msg := range state.Messages {
		t.AppendRow(table.Row{i + 1, msg.Role, wordwrap.String(msg.Content, 60)})
	}
	t.Render()
}

// shellCollector asks the profile questions through the REPL. Each question
// waits at most timeout; expiry records an empty answer and moves on. A
// single reader goroutine feeds every question, so a timed-out question never
// leaves a second reader racing for the terminal: a late answer is delivered
// to the next question instead of being dropped.
type shellCollector struct {
	questions []workflow.Question
	timeout   time.Duration

	print    func(...interface{})
	println  func(...interface{})
	readLine func() string

	start sync.Once
	lines chan string
}

func newShellCollector(shell *ishell.Shell, questions []workflow.Question, timeout time.Duration) *shellCollector {
	return &shellCollector{
		questions: questions,
		timeout:   timeout,
		print:     shell.Print,
		println:   shell.Println,
		readLine:  shell.ReadLine,
	}
}

func (s *shellCollector) Collect(ctx context.Context) (map[string]string, error) {
	s.start.Do(func() {
		s.lines = make(chan string)
		go func() {
			for {
				s.lines <- s.readLine()
			}
		}()
	})

	s.println("Let me ask you a few questions first.")

	answers := make(map[string]string, len(s.questions))
	for _, q := range s.questions {
		s.print(q.Prompt + " ")
		answers[q.Field] = s.awaitAnswer(ctx)
	}

	s.println("Ready! Ask me SQL questions.")
	return answers, nil
}

func (s *shellCollector) awaitAnswer(ctx context.Context) string {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	select {
	case line := <-s.lines:
		return strings.TrimSpace(line)
	case <-time.After(timeout):
		return ""
	case <-ctx.Done():
		return ""
	}
}
