package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"drover/cmd/drover/chat"
	"drover/internal/model"
	"drover/internal/model/gemini"
	"drover/internal/scheduler"
	"drover/internal/shell"
	"drover/internal/tools"
	"drover/internal/turn"
)

var (
	// Global flags
	verbose     bool
	apiKey      string
	workspace   string
	timeout     time.Duration
	autoApprove bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "drover",
	Short: "drover - an interactive agent for your workspace",
	Long: `drover is an interactive CLI agent that drives a streaming language
model over a local workspace.

The model proposes tool calls (file operations, validated shell commands,
web fetches); drover schedules them behind a confirmation and trust policy
and streams results back into the conversation.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it has its own UI)
		if cmd.Use == "drover" && cmd.CalledAs() == "drover" {
			return nil
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

// runCmd executes a single instruction without the TUI
var runCmd = &cobra.Command{
	Use:   "run [instruction]",
	Short: "Run a single instruction and print the result",
	Long: `Processes one natural language instruction through a full turn:
the model streams a reply, any tool calls it requests are scheduled and
executed, and the final text is printed to stdout.

Confirmations cannot be prompted for in this mode; pass --yes to approve
tool calls, otherwise untrusted calls are denied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstruction,
}

// toolsCmd lists the registered tool surface
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools",
	RunE:  listTools,
}

// trustCmd manages persisted trust records
var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage trust records for tools and servers",
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted trust grants",
	RunE:  trustList,
}

var trustClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all trust grants",
	RunE:  trustClear,
}

// checkCmd validates a shell command without running it
var checkCmd = &cobra.Command{
	Use:   "check [command]",
	Short: "Validate a shell command against the safety rules",
	Long: `Runs the command string through the same validator the run_command
tool uses and reports whether it would be accepted, without executing it.

Example:
  drover check "grep -r TODO src"
  drover check "cat /etc/passwd"`,
	Args: cobra.MinimumNArgs(1),
	RunE: checkCommand,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	runCmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "Approve all tool confirmations")

	trustCmd.AddCommand(trustListCmd)
	trustCmd.AddCommand(trustClearCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(trustCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInteractiveChat() error {
	return chat.Run(chat.Config{
		Workspace: workspace,
		APIKey:    apiKey,
	})
}

// runInstruction drives one headless turn and prints the reply.
func runInstruction(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	rt, err := buildRuntime(nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	input := strings.Join(args, " ")
	logger.Info("Processing instruction", zap.String("input", input))

	service, err := gemini.New(ctx, rt.cfg.Model.APIKey, rt.cfg.Model.Model, rt.registry)
	if err != nil {
		return fmt.Errorf("failed to create model service: %w", err)
	}

	approve := autoApprove || rt.cfg.Trust.AutoApprove
	sched := scheduler.New(rt.registry, rt.trust,
		scheduler.WithAutoApprove(approve),
		scheduler.WithNotifier(consoleNotifier{}),
	)

	history := &model.History{}
	sink := &consoleSink{}
	processor := turn.NewProcessor(service, sched, rt.registry, sink, history)
	processor.MaxToolPasses = rt.cfg.Turn.MaxToolPasses

	if err := processor.Run(ctx, input); err != nil {
		return fmt.Errorf("turn failed: %w", err)
	}
	sink.flush()
	return nil
}

// consoleNotifier prints scheduler progress to stderr so stdout stays clean
// for the model's reply.
type consoleNotifier struct{}

func (consoleNotifier) ToolCallStarted(call *scheduler.ToolCall, description string) {
	fmt.Fprintf(os.Stderr, "-> %s: %s\n", call.Name, description)
}

func (consoleNotifier) ToolCallConfirming(call *scheduler.ToolCall) {
	fmt.Fprintf(os.Stderr, "-> %s requires confirmation; denying (pass --yes to approve)\n", call.Name)
	call.Confirmation().Resolve(tools.OutcomeDeny)
}

func (consoleNotifier) ToolCallFinished(call *scheduler.ToolCall) {
	fmt.Fprintf(os.Stderr, "<- %s: %s\n", call.Name, call.Status())
}

// consoleSink prints completed messages to stdout in arrival order.
type consoleSink struct {
	items []any
}

func (s *consoleSink) AddItem(data any, _ time.Time) int {
	s.items = append(s.items, data)
	return len(s.items) - 1
}

func (s *consoleSink) UpdateItem(id int, fn func(any) any) {
	if id >= 0 && id < len(s.items) {
		s.items[id] = fn(s.items[id])
	}
}

func (s *consoleSink) flush() {
	for _, item := range s.items {
		if msg, ok := item.(turn.MessageItem); ok && msg.Text != "" {
			fmt.Println(msg.Text)
		}
	}
}

func listTools(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tDESCRIPTION")
	for _, tool := range rt.registry.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", tool.Name, tool.Category, tool.Description)
	}
	return w.Flush()
}

func trustList(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	records, err := rt.trust.List()
	if err != nil {
		return fmt.Errorf("failed to list trust records: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No trust records.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tSERVER\tLEVEL\tUPDATED")
	for _, rec := range records {
		name := rec.ToolName
		if name == "" {
			name = "(all tools)"
		}
		server := rec.Server
		if server == "" {
			server = "builtin"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, server, rec.Level, rec.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func trustClear(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.trust.Clear(); err != nil {
		return fmt.Errorf("failed to clear trust records: %w", err)
	}
	fmt.Println("Trust records cleared.")
	return nil
}

func checkCommand(cmd *cobra.Command, args []string) error {
	command := strings.Join(args, " ")
	if rej := shell.Validate(command); rej != nil {
		return fmt.Errorf("rejected (%s): %s", rej.Category, rej.Message)
	}
	fmt.Println("OK")
	return nil
}
