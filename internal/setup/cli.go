package setup

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// CLI runs the setup subcommands.
type CLI struct {
	out io.Writer
}

// NewCLI creates a setup CLI writing to out.
func NewCLI(out io.Writer) *CLI {
	return &CLI{out: out}
}

// Run executes the setup command named by args[0].
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		c.showHelp()
		return nil
	}

	switch args[0] {
	case "register":
		return c.register(args[1:])
	case "status":
		return c.status(args[1:])
	case "help", "--help", "-h":
		c.showHelp()
		return nil
	default:
		c.showHelp()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *CLI) showHelp() {
	fmt.Fprint(c.out, `
Peptide Safety Engine Setup

Usage:
  mcp-server-lite setup <command> [options]

Commands:
  register   Register the server with the desktop MCP client
  status     Show registration status

Options:
  --config <path>      Client config file (defaults to the desktop client's)
  --binary <path>      Server binary (defaults to this executable)
  --data-dir <path>    Consent database directory
  --knowledge <path>   Catalog YAML replacing the built-in catalog
`)
}

func (c *CLI) register(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.out)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "client config file")
	fs.StringVar(&opts.BinaryPath, "binary", "", "server binary")
	fs.StringVar(&opts.DataDir, "data-dir", "", "consent database directory")
	fs.StringVar(&opts.KnowledgeFile, "knowledge", "", "catalog YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.BinaryPath == "" {
		if exe, err := os.Executable(); err == nil {
			opts.BinaryPath = exe
		}
	}

	path, err := Register(opts)
	if err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}

	fmt.Fprintf(c.out, "Registered %s in %s\n", ServerName, path)
	fmt.Fprintf(c.out, "Server binary: %s\n", opts.BinaryPath)
	fmt.Fprintln(c.out, "Restart the client to load the new configuration.")
	return nil
}

func (c *CLI) status(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(c.out)
	configPath := fs.String("config", "", "client config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	status, err := GetStatus(*configPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Client config: %s\n", status.ConfigPath)
	if status.Registered {
		fmt.Fprintf(c.out, "Registered: yes (%s)\n", status.ServerPath)
	} else {
		fmt.Fprintln(c.out, "Registered: no")
	}
	fmt.Fprintf(c.out, "Data directory: %s\n", status.DataDir)
	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}
