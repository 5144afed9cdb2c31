package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	ts "github.com/sugarme/gotch/tensor"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sugarme/dfnet/dfnet"
)

// runAlpha plots the distribution of blend coefficients of every fused
// depth for one sample. Mass near 1 means the network reconstructs, near 0
// means it keeps the visible input.
func runAlpha(cfg *dfnet.Config) {
	if ImagePath == "" || MaskPath == "" {
		log.Fatal("Please specify '-image' and '-mask' files.")
	}
	if err := os.MkdirAll(OutDir, 0755); err != nil {
		log.Fatal(err)
	}

	_, net := loadModel(cfg)
	imgMiss, mask, err := loadSample(sample{image: absPath(ImagePath), mask: absPath(MaskPath)})
	if err != nil {
		log.Fatal(err)
	}

	var out *dfnet.Output
	ts.NoGrad(func() {
		out, err = net.Forward(imgMiss, mask, false)
	})
	imgMiss.MustDrop()
	mask.MustDrop()
	if err != nil {
		log.Fatal(err)
	}
	defer out.Drop()

	for i, alpha := range out.Alphas {
		fname := filepath.Join(OutDir, fmt.Sprintf("alpha_depth%d.png", out.Depths[i]))
		if err := plotHist(alpha.Float64Values(), Bins, fmt.Sprintf("alpha (depth %d)", out.Depths[i]), fname); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Saved %v\n", fname)
	}
}

func plotHist(values []float64, bins int, title, filename string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = title
	p.X.Label.Text = "alpha"
	p.Y.Label.Text = "density"
	p.X.Min = 0
	p.X.Max = 1

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return err
	}
	h.Normalize(1)
	p.Add(h)

	return p.Save(4*vg.Inch, 4*vg.Inch, filename)
}
