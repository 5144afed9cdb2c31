package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
)

// readManifest reads a CSV with `image` and `mask` columns and an optional
// `target` column. Relative paths are resolved from the manifest directory.
func readManifest(filename string) ([]sample, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, df.Err
	}

	var hasTarget bool
	cols := make(map[string]bool)
	for _, n := range df.Names() {
		cols[n] = true
	}
	if !cols["image"] || !cols["mask"] {
		return nil, fmt.Errorf("Manifest %v must have 'image' and 'mask' columns. Got %v", filename, df.Names())
	}
	hasTarget = cols["target"]

	dir := filepath.Dir(filename)
	resolve := func(p string) string {
		if p == "NaN" {
			// gota reports empty cells as NaN
			return ""
		}
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	images := df.Col("image").Records()
	masks := df.Col("mask").Records()
	var targets []string
	if hasTarget {
		targets = df.Col("target").Records()
	}

	samples := make([]sample, 0, len(images))
	for i := range images {
		s := sample{image: resolve(images[i]), mask: resolve(masks[i])}
		if hasTarget {
			s.target = resolve(targets[i])
		}
		samples = append(samples, s)
	}

	return samples, nil
}
