package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/language"

	"github.com/rhuss/llmhub/pkg/config"
	"github.com/rhuss/llmhub/pkg/debug"
	"github.com/rhuss/llmhub/pkg/hub"
	"github.com/rhuss/llmhub/pkg/models"
	"github.com/rhuss/llmhub/pkg/node"
	"github.com/rhuss/llmhub/pkg/transport"
)

const usage = `llmhub runs the LLM Hub chat-completion node locally.

Usage:
  llmhub models [--config <path>] [--credentials <name>]
  llmhub run [--config <path>] <batch.json|->

Commands:
  models   List the models offered by the hub (or the fallback list)
  run      Execute a batch and print the outputs as JSON

Flags:
  -h, --help  Show this help message`

const runUsage = `Usage:
  llmhub run [--config <path>] [--credentials <name>] <batch.json|->

The batch file has the host API shape:
  {"credentials": "...", "parameters": {...}, "items": [{"json": {...}, "parameters": {...}}]}
Use "-" to read it from stdin.`

// execute dispatches args to a subcommand, writing results to out.
func execute(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return printUsage(out)
	}

	switch args[0] {
	case "models":
		return runModels(ctx, args[1:], out)
	case "run":
		return runBatch(ctx, args[1:], os.Stdin, out)
	case "help", "-h", "--help":
		return printUsage(out)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage(out io.Writer) error {
	fmt.Fprintln(out, strings.TrimSpace(usage))
	return nil
}

type commonFlags struct {
	configPath  string
	credentials string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to configuration file")
	fs.StringVar(&c.credentials, "credentials", "", "credential set name (default: hub.default_credentials)")
}

// setup loads the configuration and builds the node with its credential store.
func (c *commonFlags) setup() (*config.Config, *node.Node, *hub.Client, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)

	client := hub.NewClient(hub.Config{Timeout: cfg.Hub.Timeout})
	n := node.New(client, node.WithResolverOptions(models.WithLocale(language.Make(cfg.Hub.Locale))))
	return cfg, n, client, nil
}

func (c *commonFlags) credentialsName(cfg *config.Config, fromBatch string) string {
	switch {
	case c.credentials != "":
		return c.credentials
	case fromBatch != "":
		return fromBatch
	default:
		return cfg.Hub.DefaultCredentials
	}
}

func runModels(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(out)
	var flags commonFlags
	flags.register(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse models flags: %w", err)
	}

	cfg, n, client, err := flags.setup()
	if err != nil {
		return err
	}
	defer client.Close()

	host := &node.Batch{
		CredentialsName: flags.credentialsName(cfg, ""),
		Source:          cfg.CredentialStore(),
	}
	opts, err := n.LoadOptions(ctx, node.MethodGetModels, host)
	if err != nil {
		return err
	}

	for _, o := range opts {
		if o.Name == o.Value {
			fmt.Fprintln(out, o.Value)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", o.Value, o.Name)
	}
	return nil
}

func runBatch(ctx context.Context, args []string, stdin io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprintln(out, runUsage) }
	var flags commonFlags
	flags.register(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse run flags: %w", err)
	}
	if fs.NArg() != 1 {
		return errors.New("run command requires exactly one batch file (or - for stdin)")
	}

	req, err := readBatch(fs.Arg(0), stdin)
	if err != nil {
		return err
	}

	cfg, n, client, err := flags.setup()
	if err != nil {
		return err
	}
	defer client.Close()

	host := &node.Batch{
		CredentialsName: flags.credentialsName(cfg, req.Credentials),
		Source:          cfg.CredentialStore(),
		Parameters:      req.Parameters,
		Items:           req.Items,
	}
	outputs, err := n.Execute(ctx, host)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(transport.ExecuteResponse{Outputs: outputs})
}

func readBatch(path string, stdin io.Reader) (*transport.ExecuteRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening batch: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req transport.ExecuteRequest
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decoding batch: %w", err)
	}
	return &req, nil
}
