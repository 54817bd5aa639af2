package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/stagegraph/internal/app"
	"github.com/vk/stagegraph/internal/config"
	"github.com/vk/stagegraph/internal/hcl"
	"github.com/vk/stagegraph/internal/layout"
	"github.com/vk/stagegraph/internal/stepstree"
	"github.com/vk/stagegraph/internal/yamlconfig"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// runner holds the writers and the flags shared by every subcommand.
type runner struct {
	outW io.Writer
	errW io.Writer

	logFormat        string
	logLevel         string
	healthcheckPort  int
	publishURL       string
	publishNamespace string
}

func (r *runner) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&r.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	f.StringVar(&r.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.IntVar(&r.healthcheckPort, "healthcheck-port", 0, "Port for the health check and metrics server in watch mode. 0 is disabled.")
	f.StringVar(&r.publishURL, "publish-url", "", "Socket.IO server that receives every rendered graph.")
	f.StringVar(&r.publishNamespace, "publish-namespace", "/", "Socket.IO namespace used with --publish-url.")
}

// viewFlags configure how a pipeline is drawn.
type viewFlags struct {
	execution string
	rollback  bool
	readOnly  bool
	edges     bool
	style     layout.Style
}

func (v *viewFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&v.execution, "execution", "", "Render an execution status document (JSON) as a stage diagram.")
	f.BoolVar(&v.rollback, "rollback", false, "Show the rollback steps instead of the forward steps.")
	f.BoolVar(&v.readOnly, "read-only", false, "Draw without create-new placeholders and drop targets.")
	f.BoolVar(&v.edges, "edges", false, "Also print the edge table.")
	f.Float64Var(&v.style.AvailableHeight, "available-height", 0, "Canvas height a parallel may fan out into in a stage diagram. 0 means unlimited.")
	f.Float64Var(&v.style.Gap, "gap", 0, "Space between nodes. 0 keeps the pipeline's or the default value.")
	f.Float64Var(&v.style.NodeWidth, "node-width", 0, "Width of a step node. 0 keeps the pipeline's or the default value.")
	f.Float64Var(&v.style.NodeHeight, "node-height", 0, "Height of a step node. 0 keeps the pipeline's or the default value.")
	f.Float64Var(&v.style.GridSize, "grid-size", 0, "Grid the layout snaps to. 0 keeps the pipeline's or the default value.")
}

// anchorFlags pick where a node goes.
type anchorFlags struct {
	source string
	target string
	onto   string
	group  string
}

func (a *anchorFlags) bind(cmd *cobra.Command, ontoUsage string) {
	f := cmd.Flags()
	f.StringVar(&a.source, "source", "", "Source node of the link to drop on (needs --target).")
	f.StringVar(&a.target, "target", "", "Target node of the link to drop on (needs --source).")
	f.StringVar(&a.onto, "onto", "", ontoUsage)
	f.StringVar(&a.group, "group", "", "Step group whose create-new placeholder receives the node. Empty means the root list.")
	cmd.MarkFlagsRequiredTogether("source", "target")
	cmd.MarkFlagsMutuallyExclusive("source", "onto")
	cmd.MarkFlagsMutuallyExclusive("source", "group")
	cmd.MarkFlagsMutuallyExclusive("onto", "group")
}

// anchor reports the anchor and whether it is a node drop.
func (a *anchorFlags) anchor() (stepstree.Anchor, bool) {
	switch {
	case a.source != "":
		return stepstree.LinkAnchor{Source: a.source, Target: a.target}, false
	case a.onto != "":
		return stepstree.NodeAnchor{Identifier: a.onto}, true
	}
	return stepstree.CreateNewAnchor{GroupIdentifier: a.group}, false
}

// NewRootCommand builds the stagegraph command tree. Results are written to
// outW, logs and errors to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	r := &runner{outW: outW, errW: errW}

	root := &cobra.Command{
		Use:   "stagegraph",
		Short: "Lay out pipeline step trees and execution stages as graphs.",
		Long: `stagegraph lays out a pipeline definition (.hcl, .yaml, .yml or .json, a
single file or a directory) as a positioned graph, prints it as a table and
optionally publishes it to a Socket.IO rendering surface. It can also edit
the definition: remove, insert and move nodes the way the canvas does.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Message: err.Error()}
	})
	r.bind(root)

	root.AddCommand(r.renderCmd())
	root.AddCommand(r.watchCmd())
	root.AddCommand(r.removeCmd())
	root.AddCommand(r.insertCmd())
	root.AddCommand(r.moveCmd())
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, outW, errW io.Writer, args []string) error {
	slog.Debug("CLI parser started.", "args", args)
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	var exitErr *ExitError
	switch {
	case err == nil, errors.As(err, &exitErr):
		return err
	case strings.HasPrefix(err.Error(), "unknown command"),
		strings.Contains(err.Error(), "arg(s)"),
		strings.Contains(err.Error(), "if any flags in the group"):
		return &ExitError{Code: 2, Message: err.Error()}
	}
	return err
}

func (r *runner) newApp(cfg app.Config) (*app.App, error) {
	cfg.LogFormat = strings.ToLower(r.logFormat)
	cfg.LogLevel = strings.ToLower(r.logLevel)
	cfg.HealthcheckPort = r.healthcheckPort
	cfg.PublishURL = r.publishURL
	cfg.PublishNamespace = r.publishNamespace

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	loader := config.NewRegistry(hcl.NewLoader(), yamlconfig.NewLoader())
	slog.Debug("CLI parser finished successfully.", "config", validated)
	return app.NewApp(r.outW, validated, loader, app.WithLogWriter(r.errW)), nil
}

func viewConfig(args []string, v *viewFlags) (app.Config, error) {
	cfg := app.Config{
		ExecutionPath: v.execution,
		Rollback:      v.rollback,
		ReadOnly:      v.readOnly,
		ShowEdges:     v.edges,
		Style:         v.style,
	}
	if len(args) > 0 {
		cfg.PipelinePath = args[0]
	}
	if cfg.PipelinePath == "" && cfg.ExecutionPath == "" {
		return cfg, usageError("a pipeline path or --execution is required")
	}
	return cfg, nil
}

func (r *runner) renderCmd() *cobra.Command {
	var v viewFlags
	cmd := &cobra.Command{
		Use:   "render [PIPELINE_PATH]",
		Short: "Lay out a pipeline once and print it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := viewConfig(args, &v)
			if err != nil {
				return err
			}
			a, err := r.newApp(cfg)
			if err != nil {
				return err
			}
			return a.Render(cmd.Context())
		},
	}
	v.bind(cmd)
	return cmd
}

func (r *runner) watchCmd() *cobra.Command {
	var (
		v        viewFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [PIPELINE_PATH]",
		Short: "Re-render whenever the pipeline or execution file changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := viewConfig(args, &v)
			if err != nil {
				return err
			}
			cfg.WatchDebounce = debounce
			a, err := r.newApp(cfg)
			if err != nil {
				return err
			}
			return a.Watch(cmd.Context())
		},
	}
	v.bind(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", app.DefaultWatchDebounce, "Quiet period before a burst of file changes triggers a render.")
	return cmd
}

func outputFormat(name string) (yamlconfig.Format, error) {
	switch f := yamlconfig.Format(strings.ToLower(name)); f {
	case yamlconfig.FormatYAML, yamlconfig.FormatJSON:
		return f, nil
	}
	return "", usageError("invalid output format %q: must be 'yaml' or 'json'", name)
}

func (r *runner) removeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "remove PIPELINE_PATH ID",
		Aliases: []string{"rm"},
		Short:   "Remove a step, step group or service and print the result",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(output)
			if err != nil {
				return err
			}
			a, err := r.newApp(app.Config{PipelinePath: args[0]})
			if err != nil {
				return err
			}
			return a.Remove(cmd.Context(), args[1], format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format. Options: 'yaml' or 'json'.")
	return cmd
}

func (r *runner) insertCmd() *cobra.Command {
	var (
		af       anchorFlags
		output   string
		name     string
		stepType string
		rollback bool
	)
	cmd := &cobra.Command{
		Use:   "insert PIPELINE_PATH ID",
		Short: "Insert a step on a link, next to a node or at a create-new placeholder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(output)
			if err != nil {
				return err
			}
			a, err := r.newApp(app.Config{PipelinePath: args[0]})
			if err != nil {
				return err
			}
			anchor, parallel := af.anchor()
			req := app.InsertRequest{
				Anchor:   anchor,
				Parallel: parallel,
				Rollback: rollback,
			}
			req.Step.Identifier = args[1]
			req.Step.Name = name
			req.Step.Type = stepType
			return a.Insert(cmd.Context(), req, format)
		},
	}
	af.bind(cmd, "Node to run the new step in parallel with.")
	cmd.Flags().StringVar(&name, "name", "", "Step name. Defaults to the identifier.")
	cmd.Flags().StringVar(&stepType, "type", "ShellScript", "Step type.")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Use the rollback list when a list has to be chosen.")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format. Options: 'yaml' or 'json'.")
	return cmd
}

func (r *runner) moveCmd() *cobra.Command {
	var (
		af       anchorFlags
		output   string
		rollback bool
	)
	cmd := &cobra.Command{
		Use:   "move PIPELINE_PATH ID",
		Short: "Drag a node onto a link, another node or a create-new placeholder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(output)
			if err != nil {
				return err
			}
			a, err := r.newApp(app.Config{PipelinePath: args[0]})
			if err != nil {
				return err
			}
			anchor, _ := af.anchor()
			return a.Move(cmd.Context(), args[1], anchor, rollback, format)
		},
	}
	af.bind(cmd, "Node to join in a parallel.")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Use the rollback list when a list has to be chosen.")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format. Options: 'yaml' or 'json'.")
	return cmd
}
