package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/application"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/logging"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/report"
)

const inputPrompt = "Enter company name (or 'exit' to quit): "

// reportRunner is the part of application.Pipeline the REPL uses.
type reportRunner interface {
	Run(ctx context.Context, subject string) (*domain.Report, error)
}

// runREPL reads one company name per line and prints its report. It
// returns nil on exit, quit, or end of input. A run that hits the malformed
// output ceiling ends the session with that error; other run errors are
// printed and the loop continues.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, runner reportRunner, renderer *report.Renderer) error {
	fmt.Fprint(out, "Welcome to Company Analysis Bot!\n")
	fmt.Fprint(out, "This bot will provide a comprehensive analysis of any company.\n\n")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, inputPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		subject := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(subject) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprint(out, "\nGoodbye!\n")
			return nil
		}

		fmt.Fprintf(out, "\nGenerating a comprehensive analysis for %s. This may take a few minutes...\n", subject)
		rep, err := runner.Run(logging.WithSubject(ctx, subject), subject)
		switch {
		case errors.Is(err, application.ErrMalformedOutputCeiling):
			return err
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			fmt.Fprintf(out, "Error during company analysis: %v\n", err)
			continue
		}

		if err := renderer.Render(out, rep); err != nil {
			return err
		}
	}
}
