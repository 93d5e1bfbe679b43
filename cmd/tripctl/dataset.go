package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/pkg/fixtures"
)

type datasetCmd struct {
	Validate datasetValidateCmd `cmd:"" help:"Validate dataset YAML files against the record schema."`
	List     datasetListCmd     `cmd:"" help:"List the embedded dataset files."`
}

type datasetValidateCmd struct {
	Paths    []string `arg:"" optional:"" type:"existingfile" help:"Dataset files to validate."`
	Embedded bool     `help:"Also validate the datasets compiled into the binary."`
}

func (cmd *datasetValidateCmd) Run(_ context.Context) error {
	if len(cmd.Paths) == 0 && !cmd.Embedded {
		return errors.New("tripctl: pass dataset files or --embedded")
	}
	var checked, failed int
	report := func(name string, summary tripdesk.DatasetSummary, err error) {
		checked++
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", name, err)
			return
		}
		fmt.Fprintf(os.Stdout, "✓ %s: %d %s\n", name, summary.Records, summary.Kind)
	}
	for _, p := range cmd.Paths {
		summary, err := inspect(func() (io.ReadCloser, error) { return os.Open(p) }) //nolint:gosec
		report(p, summary, err)
	}
	if cmd.Embedded {
		for _, name := range fixtures.Files() {
			summary, err := inspect(func() (io.ReadCloser, error) { return fixtures.Open(name) })
			report(name, summary, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("tripctl: %d of %d datasets invalid", failed, checked)
	}
	return nil
}

func inspect(open func() (io.ReadCloser, error)) (tripdesk.DatasetSummary, error) {
	r, err := open()
	if err != nil {
		return tripdesk.DatasetSummary{}, err
	}
	defer r.Close()
	return tripdesk.InspectDataset(r)
}

type datasetListCmd struct{}

func (cmd *datasetListCmd) Run(_ context.Context) error {
	data, err := fixtures.Default()
	if err != nil {
		return err
	}
	for _, name := range fixtures.Files() {
		base := path.Base(name)
		kind, _ := tripdesk.ParseKind(strings.TrimSuffix(base, path.Ext(base)))
		fmt.Fprintf(os.Stdout, "%s\t%d records\n", name, data.Len(kind))
	}
	return nil
}
