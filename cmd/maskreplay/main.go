// Command maskreplay loads an image, replays a scripted pointer session on it
// and writes the inpainting mask and cutout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mask-editor/internal/app"
	"mask-editor/internal/encode"
	"mask-editor/internal/image"
	"mask-editor/internal/submit"
	"mask-editor/internal/version"
)

func main() {
	imagePath := flag.String("i", "", "Path to source image: "+image.FileFilter())
	scriptPath := flag.String("s", "", "Path to JSON input script")
	view := flag.String("view", "800x600", "Viewport size WxH")
	outDir := flag.String("o", "", "Output directory (default: next to the image)")
	formatName := flag.String("format", "png", "Output format: png, tiff or bmp")
	dilate := flag.Int("dilate", 0, "Grow the mask by N image pixels after replay")
	feather := flag.Int("feather", 0, "Feather the mask edges by N image pixels after replay")
	configPath := flag.String("config", "", "Path to a JSON session config")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("maskreplay"))
		return
	}

	if *imagePath == "" || *scriptPath == "" {
		fmt.Println("Usage: maskreplay -i <image> -s <script.json> [-view 800x600] [-o dir] [-format png|tiff|bmp] [-dilate N] [-feather N]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*imagePath, *scriptPath, *view, *outDir, *formatName, *configPath, *dilate, *feather); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(imagePath, scriptPath, view, outDir, formatName, configPath string, dilate, feather int) error {
	format, err := encode.ParseFormat(formatName)
	if err != nil {
		return err
	}
	size, err := parseView(view)
	if err != nil {
		return err
	}

	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	steps, err := ParseScript(f)
	f.Close()
	if err != nil {
		return err
	}

	cfg := app.DefaultConfig()
	if configPath != "" {
		if cfg, err = app.LoadConfig(configPath); err != nil {
			return err
		}
	}

	s := app.NewSession(cfg)
	defer s.Close()
	s.Resize(size.Width, size.Height)
	if err := s.LoadFile(imagePath); err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	src := s.Source()
	fmt.Printf("Loaded %s image: %dx%d pixels\n", src.Format, src.Width(), src.Height())
	fmt.Printf("Initial transform: %+v\n", s.Transform())

	start := time.Now()
	Replay(s, steps)
	fmt.Printf("Replayed %d steps in %v\n", len(steps), time.Since(start))
	fmt.Printf("Final transform: %+v\n", s.Transform())
	fmt.Printf("Undo available: %v, redo available: %v\n", s.CanUndo(), s.CanRedo())

	if dilate > 0 || feather > 0 {
		if err := s.Refine(dilate, feather); err != nil {
			return err
		}
		fmt.Printf("Refined mask: dilate %d, feather %d\n", dilate, feather)
	}

	art, ok := s.Outputs(format)
	if !ok {
		return fmt.Errorf("no outputs available")
	}

	up := submit.ForSource(imagePath)
	if outDir != "" {
		up.Dir = outDir
	}
	if err := submit.New(up).Submit(context.Background(), art); err != nil {
		return err
	}
	maskPath, cutoutPath := up.Paths(format)
	fmt.Printf("Wrote %s (%d bytes)\n", filepath.Clean(maskPath), len(art.Mask))
	fmt.Printf("Wrote %s (%d bytes)\n", filepath.Clean(cutoutPath), len(art.Cutout))
	return nil
}
