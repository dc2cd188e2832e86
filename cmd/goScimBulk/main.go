package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/chzyer/readline"

	"github.com/i2-open/i2goScimBulk/config"
)

const Version = "1.0.0"

var toolLog = log.New(os.Stdout, "TOOL: ", log.Ldate|log.Ltime)

type Globals struct {
	EnvFile string    `help:"Dotenv file holding WEBEX_ORG_ID and WEBEX_SCIM_TOKEN (ignored when absent)" default:".env" type:"path"`
	Out     io.Writer `kong:"-"`
}

type CLI struct {
	Globals
	Remove  RemoveCmd  `cmd:"" help:"Remove alternate email addresses listed in a CSV or XLSX file"`
	Lookup  LookupCmd  `cmd:"" help:"Look up a directory user by primary email"`
	Version VersionCmd `cmd:"" help:"Show the goScimBulk version information"`
	Help    HelpCmd    `cmd:"" help:"Show help on a command"`
}

// loadConfig reads the dotenv file (if any) and then the environment.
func (g *Globals) loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(g.EnvFile, false); err != nil {
		return config.Config{}, fmt.Errorf("loading %s: %w", g.EnvFile, err)
	}
	return config.GetEnvConfig()
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// ErrCancelled is returned when the operator declines the confirmation prompt.
var ErrCancelled = errors.New("cancelled, no changes made")

// confirm and interactive are replaced in tests.
var (
	confirm     = ConfirmProceed
	interactive = stdinIsTerminal
)

// stdinIsTerminal is false under cron or a pipe, where there is nobody to answer a prompt.
func stdinIsTerminal() bool {
	return readline.IsTerminal(int(os.Stdin.Fd()))
}

// ConfirmProceed asks on the terminal and returns true only for an answer starting with Y.
func ConfirmProceed(prompt string) bool {
	if prompt == "" {
		prompt = "Proceed Y|[N]? "
	}
	console, err := readline.NewEx(&readline.Config{
		Prompt:                 prompt,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		toolLog.Println("Unable to open terminal for confirmation: " + err.Error())
		return false
	}
	defer func(console *readline.Instance) {
		_ = console.Close()
	}(console)

	line, err := console.Readline()
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), "Y")
}

func initParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("goScimBulk"),
		kong.Description("Bulk removal of alternate email addresses from SCIM directory users"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	cli := &CLI{}
	parser, err := initParser(cli)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(2)
	}

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run(&cli.Globals)
	if err != nil {
		toolLog.Println("FATAL ERROR: " + err.Error())
		os.Exit(1)
	}
}
