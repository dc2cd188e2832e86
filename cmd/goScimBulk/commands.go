package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/i2-open/i2goScimBulk/internal/authUtil"
	"github.com/i2-open/i2goScimBulk/internal/bulk"
	"github.com/i2-open/i2goScimBulk/pkg/goScim/client"
	"github.com/i2-open/i2goScimBulk/pkg/goScim/operations"
)

type RemoveCmd struct {
	CsvFile         string `required:"" type:"path" help:"CSV (or .xlsx) file listing users and the alternate email to remove"`
	PrimaryColumn   string `default:"primary_email" help:"Column holding the user's primary email, used for lookup"`
	AlternateColumn string `default:"alternate_email" help:"Column holding the alternate email to remove"`
	Report          string `short:"r" type:"path" help:"Write a per-row CSV report to this file"`
	MetricsFile     string `type:"path" help:"Write prometheus metrics in text format to this file after the run"`
	Yes             bool   `short:"y" help:"Do not ask for confirmation (never asked when stdin is not a terminal)"`
}

func (r *RemoveCmd) Run(g *Globals) error {
	registry := prometheus.NewRegistry()

	c, err := newClient(g, client.NewStats(registry))
	if err != nil {
		return err
	}

	src, err := bulk.OpenSource(r.CsvFile)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	fmt.Fprintf(g.out(), "Remove the email in column '%s' from the user named in column '%s' for every row of %s\n  directory: %s\n",
		r.AlternateColumn, r.PrimaryColumn, r.CsvFile, c.BaseUrl())
	if !r.Yes && interactive() && !confirm("") {
		toolLog.Println("Cancelled, no changes made.")
		return ErrCancelled
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	processor := bulk.NewProcessor(bulk.NewMetrics(registry))
	report, runErr := processor.Run(ctx, c, src, r.CsvFile, bulk.Columns{
		Primary:   r.PrimaryColumn,
		Alternate: r.AlternateColumn,
	})

	if r.Report != "" {
		if err := writeReport(r.Report, report); err != nil {
			toolLog.Printf("Error writing report %s: %s", r.Report, err.Error())
		} else {
			toolLog.Printf("Report written to %s", r.Report)
		}
	}
	if r.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(r.MetricsFile, registry); err != nil {
			toolLog.Printf("Error writing metrics %s: %s", r.MetricsFile, err.Error())
		}
	}
	return runErr
}

func writeReport(path string, report *bulk.Report) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if err = report.WriteCsv(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

type LookupCmd struct {
	Email string `arg:"" help:"Primary email (SCIM userName) of the user"`
}

func (l *LookupCmd) Run(g *Globals) error {
	c, err := newClient(g, nil)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	list, err := c.LookupByUsername(ctx, operations.UserNameFilter(l.Email))
	if err != nil {
		return err
	}
	if list.TotalResults == 0 {
		fmt.Fprintf(g.out(), "User '%s' not found.\n", l.Email)
		return nil
	}
	jsonBytes, _ := json.MarshalIndent(list.Resources, "", "  ")
	fmt.Fprintln(g.out(), string(jsonBytes))
	return nil
}

func newClient(g *Globals, stats *client.Stats) (*client.Client, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	clientConfig := cfg.ClientConfig()
	clientConfig.Stats = stats
	c, err := client.NewClient(clientConfig)
	if err != nil {
		var cerr *client.ConfigurationError
		if errors.As(err, &cerr) {
			return nil, fmt.Errorf("%w: set WEBEX_ORG_ID and WEBEX_SCIM_TOKEN", err)
		}
		return nil, err
	}
	authUtil.WarnIfExpired(cfg.Token, time.Now())
	return c, nil
}

type VersionCmd struct{}

func (v *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.out(), "goScimBulk version %s\n", Version)
	return nil
}

type HelpCmd struct {
	Command []string `arg:"" optional:"" help:"Show help on command."`
}

// Run shows help.
func (h *HelpCmd) Run(realCtx *kong.Context) error {
	ctx, err := kong.Trace(realCtx.Kong, h.Command)
	if err != nil {
		return err
	}
	if ctx.Error != nil {
		return ctx.Error
	}
	err = ctx.PrintUsage(false)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(realCtx.Stdout)
	return nil
}
