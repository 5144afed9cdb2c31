package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/sugarme/gotch"

	"github.com/sugarme/dfnet/base"
	"github.com/sugarme/dfnet/dfnet"
)

// flag variables
var (
	task         string
	ImagePath    string
	MaskPath     string
	ManifestPath string
	ModelPath    string
	OutDir       string
	Cuda         bool
	Device       gotch.Device
)

// model options
var (
	ImageSize     int     // input resize (square); 0 keeps the file size
	MaskThreshold float64 // mask luminance threshold for missing pixels
	NormStr       string
	ModeStr       string
	AlphaChannels int64
	Bins          int // alpha histogram bins
)

func init() {
	flag.StringVar(&task, "task", "infer", "specify task to run: model | init | infer | manifest | alpha")
	flag.StringVar(&ImagePath, "image", "", "specify input image file")
	flag.StringVar(&MaskPath, "mask", "", "specify mask file (white = missing)")
	flag.StringVar(&ManifestPath, "manifest", "", "specify CSV manifest with 'image,mask[,target]' columns")
	flag.StringVar(&ModelPath, "model", "", "specify full path to model weight '.ot' file.")
	flag.StringVar(&OutDir, "out", "./output", "specify output directory")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.IntVar(&ImageSize, "size", 256, "specify square input size; must be divisible by 16")
	flag.Float64Var(&MaskThreshold, "threshold", 0.5, "specify mask luminance threshold")
	flag.StringVar(&NormStr, "norm", "batch", "specify normalization: batch | instance | none")
	flag.StringVar(&ModeStr, "mode", "nearest", "specify upsampling mode: nearest | bilinear | deconv")
	flag.Int64Var(&AlphaChannels, "alpha", 3, "specify blend coefficient channels: 1 | 3")
	flag.IntVar(&Bins, "bins", 20, "specify alpha histogram bins")
}

func main() {
	flag.Parse()

	OutDir = absPath(OutDir)

	Device = gotch.CPU
	if Cuda {
		Device = gotch.NewCuda().CudaIfAvailable()
	}

	cfg, err := buildConfig()
	if err != nil {
		log.Fatal(err)
	}

	switch task {
	case "model":
		runCheckModel(cfg)
	case "init":
		runInit(cfg)
	case "infer":
		runInfer(cfg)
	case "manifest":
		runManifest(cfg)
	case "alpha":
		runAlpha(cfg)
	default:
		err := fmt.Errorf("Unknown 'task' name. Please specify valid 'task' flag to run.\n")
		panic(err)
	}
}

func buildConfig() (*dfnet.Config, error) {
	mode, err := base.ParseUpMode(ModeStr)
	if err != nil {
		return nil, err
	}

	cfg := dfnet.DefaultConfig()
	cfg.Norm = base.ParseNorm(NormStr)
	cfg.UpMode = mode
	cfg.AlphaChannels = AlphaChannels

	return cfg, nil
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		log.Fatal(err)
	}
	return fullpath
}
