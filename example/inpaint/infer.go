package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/dfnet/base"
	"github.com/sugarme/dfnet/dfnet"
	"github.com/sugarme/dfnet/imgutil"
	"github.com/sugarme/dfnet/metric"
)

func loadModel(cfg *dfnet.Config) (*nn.VarStore, *dfnet.DFNet) {
	vs := nn.NewVarStore(Device)
	net, err := dfnet.New(vs.Root(), cfg)
	if err != nil {
		log.Fatal(err)
	}

	if ModelPath == "" {
		log.Println("No weights specified. Using random initialization.")
		return vs, net
	}

	missings, err := vs.LoadPartial(absPath(ModelPath))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Num of missings: %v\n", len(missings))
	for _, m := range missings {
		fmt.Printf("Missing Var: %v\n", m)
	}

	return vs, net
}

func runCheckModel(cfg *dfnet.Config) {
	vs, _ := loadModel(cfg)
	fmt.Printf("Config: %v\n", cfg)
	printVars(vs)
	fmt.Printf("Total params: %v\n", base.NumParams(vs))
}

func runInit(cfg *dfnet.Config) {
	if ModelPath == "" {
		log.Fatal("Please specify '-model' file to save initialized weights.")
	}
	vs := nn.NewVarStore(Device)
	if _, err := dfnet.New(vs.Root(), cfg); err != nil {
		log.Fatal(err)
	}
	if err := vs.Save(absPath(ModelPath)); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Saved initialized weights to %v\n", ModelPath)
}

// sample is one manifest row.
type sample struct {
	image  string
	mask   string
	target string // optional ground truth
}

// loadSample loads image and mask as [1 C H W] tensors on Device.
// The image is corrupted with the mask before returning.
func loadSample(s sample) (imgMiss, mask *ts.Tensor, err error) {
	img, err := imgutil.Load(s.image, ImageSize, ImageSize)
	if err != nil {
		return nil, nil, err
	}
	size := img.MustSize()
	m, err := imgutil.LoadMask(s.mask, int(size[2]), int(size[1]), MaskThreshold)
	if err != nil {
		img.MustDrop()
		return nil, nil, err
	}

	miss := imgutil.ApplyMask(img, m)
	img.MustDrop()

	imgMiss = miss.MustUnsqueeze(0, true).MustTo(Device, true)
	mask = m.MustUnsqueeze(0, true).MustTo(Device, true)

	return imgMiss, mask, nil
}

// inpaint runs one sample and writes `<name>_result.png`, `<name>_raw.png`
// and `<name>_alpha.png` of the full resolution stage, plus a
// `<name>_mask.png` preview of the holes.
func inpaint(net *dfnet.DFNet, s sample) error {
	imgMiss, mask, err := loadSample(s)
	if err != nil {
		return err
	}
	defer imgMiss.MustDrop()
	defer mask.MustDrop()

	var out *dfnet.Output
	ts.NoGrad(func() {
		out, err = net.Forward(imgMiss, mask, false)
	})
	if err != nil {
		return err
	}
	defer out.Drop()

	name := strings.TrimSuffix(filepath.Base(s.image), filepath.Ext(s.image))
	last := len(out.Results) - 1
	files := map[string]*ts.Tensor{
		"result": out.Results[last],
		"raw":    out.Raws[last],
		"alpha":  out.Alphas[last],
	}
	for suffix, x := range files {
		cpu := x.MustTo(gotch.CPU, false)
		err := imgutil.Save(cpu, filepath.Join(OutDir, fmt.Sprintf("%v_%v.png", name, suffix)))
		cpu.MustDrop()
		if err != nil {
			return err
		}
	}

	if err := savePreview(imgMiss, mask, filepath.Join(OutDir, name+"_mask.png")); err != nil {
		return err
	}

	l1 := metric.MaskedL1Loss(out.Final(), imgMiss, nil)
	fmt.Printf("%v: L1 to corrupted input %.5f", name, l1.Float64Values()[0])
	l1.MustDrop()

	if s.target != "" {
		target, err := imgutil.Load(s.target, int(imgMiss.MustSize()[3]), int(imgMiss.MustSize()[2]))
		if err != nil {
			return err
		}
		t := target.MustUnsqueeze(0, true).MustTo(Device, true)
		fmt.Printf("\tPSNR %.2fdB", metric.PSNR(out.Final(), t))
		hole := metric.MaskedL1Loss(out.Final(), t, mask)
		fmt.Printf("\thole L1 %.5f", hole.Float64Values()[0])
		hole.MustDrop()
		t.MustDrop()
	}
	fmt.Println()

	return nil
}

func runInfer(cfg *dfnet.Config) {
	if ImagePath == "" || MaskPath == "" {
		log.Fatal("Please specify '-image' and '-mask' files.")
	}
	if err := os.MkdirAll(OutDir, 0755); err != nil {
		log.Fatal(err)
	}

	_, net := loadModel(cfg)
	if err := inpaint(net, sample{image: absPath(ImagePath), mask: absPath(MaskPath)}); err != nil {
		log.Fatal(err)
	}
}

func runManifest(cfg *dfnet.Config) {
	samples, err := readManifest(absPath(ManifestPath))
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(OutDir, 0755); err != nil {
		log.Fatal(err)
	}

	_, net := loadModel(cfg)
	for i, s := range samples {
		if err := inpaint(net, s); err != nil {
			log.Printf("Sample %v (%v) failed: %v\n", i, s.image, err)
		}
	}
	fmt.Printf("Processed %v samples.\n", len(samples))
}

// savePreview writes the corrupted input with its holes highlighted.
func savePreview(imgMiss, mask *ts.Tensor, filename string) error {
	imgCPU := imgMiss.MustTo(gotch.CPU, false)
	img, err := imgutil.FromTensor(imgCPU)
	imgCPU.MustDrop()
	if err != nil {
		return err
	}
	maskCPU := mask.MustTo(gotch.CPU, false)
	m, err := imgutil.FromTensor(maskCPU)
	maskCPU.MustDrop()
	if err != nil {
		return err
	}

	return imgutil.SavePNG(imgutil.Overlay(img, m), filename)
}

// printVars print variables sorted by name
func printVars(vs *nn.VarStore) {
	vars := vs.Variables()
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		x := vars[n]
		fmt.Printf("%v \t\t %v\n", n, x.MustSize())
	}
}
