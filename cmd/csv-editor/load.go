package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/manifests"
)

// loadDocument imports every path in order into an empty document.
// Directories are imported with their ClusterServiceVersion files first.
func loadDocument(logger logrus.FieldLogger, paths []string) (*csv.Document, *manifests.Report, error) {
	importer := manifests.NewImporter(manifests.WithLogger(logger))
	doc := csv.New()
	total := &manifests.Report{}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "error reading %s", p)
		}
		var report *manifests.Report
		if info.IsDir() {
			doc, report, err = importer.ImportDir(doc, p)
		} else {
			doc, report, err = importer.ImportFiles(doc, p)
		}
		if err != nil {
			return nil, nil, err
		}
		total.Merge(report)
	}
	return doc, total, nil
}

// printReport writes one line per manifest document that was not imported.
func printReport(w io.Writer, report *manifests.Report) {
	for _, res := range report.Results {
		if res.Outcome == manifests.Imported {
			continue
		}
		line := fmt.Sprintf("%s %s", res.Outcome, describe(res))
		if res.Error != "" {
			line += ": " + res.Error
		}
		fmt.Fprintln(w, line)
	}
}

func describe(res manifests.Result) string {
	name := fmt.Sprintf("document %d", res.Index)
	if res.Source != "" {
		name = fmt.Sprintf("%s#%d", res.Source, res.Index)
	}
	if res.Kind != "" {
		name += " (" + res.Kind
		if res.Name != "" {
			name += " " + res.Name
		}
		name += ")"
	}
	return name
}
