// Command gendoc renders a .docx template with a JSON payload file, optionally converting to PDF.
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
	"time"

	"tradeops_app_go/logger"
	"tradeops_app_go/services/docgen"

	"go.uber.org/zap"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "gendoc:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gendoc", flag.ContinueOnError)
	templatePath := fs.String("template", "", "path to the .docx template")
	payloadPath := fs.String("payload", "", "path to a JSON payload file")
	format := fs.String("format", "docx", "output format: docx or pdf")
	out := fs.String("out", "", "output file (defaults to the template name with the format's extension)")
	soffice := fs.String("soffice", os.Getenv("SOFFICE_PATH"), "LibreOffice executable, probed when empty")
	timeout := fs.Duration("timeout", docgen.DefaultConversionTimeout, "PDF conversion timeout")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *templatePath == "" || *payloadPath == "" {
		fs.Usage()
		return errors.New("-template and -payload are required")
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logger.New("development", level)
	if err != nil {
		return err
	}
	defer log.Sync()

	tmpl, err := os.ReadFile(*templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	payload, err := readPayload(*payloadPath)
	if err != nil {
		return err
	}

	f, err := docgen.ParseFormat(*format)
	if err != nil {
		return err
	}

	var conv docgen.Converter
	if f == docgen.FormatPDF {
		conv = docgen.NewOfficeConverter(*soffice, os.TempDir(), *timeout, log.Named("converter"))
	}
	gen := docgen.NewGenerator(nil, conv, docgen.TaxPolicy{}, log)

	started := time.Now()
	doc, err := gen.Produce(ctx, tmpl, payload, f)
	if err != nil {
		return err
	}

	dest := *out
	if dest == "" {
		dest = strings.TrimSuffix(*templatePath, ".docx") + "_out." + string(f)
	}
	if err := os.WriteFile(dest, doc.Bytes, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	for _, w := range doc.Warnings {
		log.Warn("normalization warning", zap.String("detail", w.String()))
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes) in %s\n", dest, len(doc.Bytes), time.Since(started).Round(time.Millisecond))
	if len(doc.Unresolved) > 0 {
		fmt.Fprintf(stdout, "unresolved fields: %s\n", strings.Join(doc.Unresolved, ", "))
	}
	return nil
}

func readPayload(path string) (docgen.Payload, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var payload docgen.Payload
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("payload %s is not a JSON object: %w", path, err)
	}
	return payload, nil
}
