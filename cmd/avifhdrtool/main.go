// Command avifhdrtool creates, inspects and renders images with gain maps.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/vearutop/avifhdr"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(int(avifhdr.ResultInvalidArgument))
	}
	var err error
	switch os.Args[1] {
	case "combine":
		err = runCombine(os.Args[2:])
	case "swapbase":
		err = runSwapBase(os.Args[2:])
	case "apply":
		err = runApply(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	default:
		usage()
		os.Exit(int(avifhdr.ResultInvalidArgument))
	}
	if err != nil {
		fail(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: avifhdrtool <command> [flags] args")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  combine  [-downscaling 1] [-qgain-map 60] [-depth-gain-map 8] [-yuv-gain-map 444] [-max-headroom 4]")
	fmt.Fprintln(os.Stderr, "           [-cicp-base P/T/M] [-cicp-alternate P/T/M] [-q 60] [-speed 6] [-codec avif] base alternate out.avifhdr")
	fmt.Fprintln(os.Stderr, "  swapbase [-depth 0] [-yuv ''] [-qgain-map 60] [-cicp P/T/M] [-alt-cicp P/T/M] in.avifhdr out.avifhdr")
	fmt.Fprintln(os.Stderr, "  apply    [-headroom 0] [-depth 16] in.avifhdr out.{png,tiff,hdr,exr}")
	fmt.Fprintln(os.Stderr, "  convert  [-depth 0] [-yuv 444] [-cicp P/T/M] [-q 60] [-speed 6] [-codec avif] in out")
	fmt.Fprintln(os.Stderr, "  info     in.avifhdr")
	fmt.Fprintln(os.Stderr, "Inputs: png, jpeg, tiff, exr, hdr or avifhdr bundles. All commands accept -v.")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	res := avifhdr.ResultOf(err)
	if errors.Is(err, flag.ErrHelp) {
		res = avifhdr.ResultInvalidArgument
	}
	os.Exit(int(res))
}

// newFlagSet returns a flag set with the shared -v flag.
func newFlagSet(name string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	verbose := fs.Bool("v", false, "log conversion stages to stderr")
	return fs, verbose
}

func parse(fs *flag.FlagSet, verbose *bool, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *verbose {
		avifhdr.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if fs.NArg() != positional {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", avifhdr.ErrInvalidArgument, fs.Name(), positional, fs.NArg())
	}
	return fs.Args(), nil
}

func runCombine(args []string) error {
	fs, verbose := newFlagSet("combine")
	downscaling := fs.Int("downscaling", 1, "gain map downscaling factor")
	gainMapQuality := fs.Int("qgain-map", 60, "gain map quality (0-100)")
	gainMapDepth := fs.Int("depth-gain-map", 8, "gain map depth (8, 10 or 12)")
	gainMapFormat := fs.String("yuv-gain-map", "444", "gain map pixel format (444, 422, 420 or 400)")
	maxHeadroom := fs.Float64("max-headroom", 4, "cap for base and alternate headrooms, 0 keeps computed values")
	baseCICP := fs.String("cicp-base", "", "override base CICP as P/T/M")
	altCICP := fs.String("cicp-alternate", "", "override alternate CICP as P/T/M")
	enc := addEncodeFlags(fs)
	rd := addReadFlags(fs)
	pos, err := parse(fs, verbose, args, 3)
	if err != nil {
		return err
	}

	base, err := rd.load(pos[0], *baseCICP)
	if err != nil {
		return fmt.Errorf("read base image: %w", err)
	}
	alt, err := rd.load(pos[1], *altCICP)
	if err != nil {
		return fmt.Errorf("read alternate image: %w", err)
	}

	gmFormat, err := avifhdr.ParsePixelFormat(*gainMapFormat)
	if err != nil {
		return err
	}
	d := max(*downscaling, 1)
	gw := max((base.Width+d/2)/d, 1)
	gh := max((base.Height+d/2)/d, 1)
	fmt.Printf("Creating a gain map of size %d x %d\n", gw, gh)

	gm := avifhdr.NewGainMap()
	gm.Image = avifhdr.NewImage(gw, gh, *gainMapDepth, gmFormat)
	if err := avifhdr.ComputeGainMap(base, alt, gm); err != nil {
		return fmt.Errorf("compute gain map: %w", err)
	}
	if err := gm.CapHeadroom(*maxHeadroom); err != nil {
		return fmt.Errorf("unable to express %v as a fraction: %w", *maxHeadroom, err)
	}
	base.GainMap = gm

	return writeBundle(pos[2], base, enc, *gainMapQuality)
}

func runSwapBase(args []string) error {
	fs, verbose := newFlagSet("swapbase")
	depth := fs.Int("depth", 0, "output depth, 0 picks the alternate depth")
	yuv := fs.String("yuv", "", "output pixel format, empty picks from the alternate plane count")
	gainMapQuality := fs.Int("qgain-map", 60, "gain map quality (0-100)")
	cicp := fs.String("cicp", "", "override input CICP as P/T/M, becomes the alternate after swapping")
	altCICP := fs.String("alt-cicp", "", "override alternate CICP as P/T/M, becomes the base after swapping")
	enc := addEncodeFlags(fs)
	pos, err := parse(fs, verbose, args, 2)
	if err != nil {
		return err
	}

	img, err := readBundle(pos[0])
	if err != nil {
		return err
	}
	if img.GainMap == nil || img.GainMap.Image == nil {
		return fmt.Errorf("%w: input image %s does not contain a gain map", avifhdr.ErrInvalidArgument, pos[0])
	}
	if *cicp != "" {
		c, err := avifhdr.ParseCICP(*cicp)
		if err != nil {
			return err
		}
		img.ColorPrimaries, img.TransferCharacteristics, img.MatrixCoefficients =
			c.ColorPrimaries, c.TransferCharacteristics, c.MatrixCoefficients
	}
	if *altCICP != "" {
		c, err := avifhdr.ParseCICP(*altCICP)
		if err != nil {
			return err
		}
		gm := img.GainMap
		gm.AltColorPrimaries, gm.AltTransferCharacteristics, gm.AltMatrixCoefficients =
			c.ColorPrimaries, c.TransferCharacteristics, c.MatrixCoefficients
	}

	defDepth, format := avifhdr.SwapBaseDefaults(img)
	if *depth == 0 {
		*depth = defDepth
	}
	if *yuv != "" {
		if format, err = avifhdr.ParsePixelFormat(*yuv); err != nil {
			return err
		}
	}
	swapped, err := avifhdr.SwapBase(img, *depth, format)
	if err != nil {
		return fmt.Errorf("swap base: %w", err)
	}
	return writeBundle(pos[1], swapped, enc, *gainMapQuality)
}

func runApply(args []string) error {
	fs, verbose := newFlagSet("apply")
	headroom := fs.Float64("headroom", 0, "target display headroom in log2 stops, 0 is SDR")
	depth := fs.Int("depth", 16, "output depth for png and tiff (8 or 16)")
	pos, err := parse(fs, verbose, args, 2)
	if err != nil {
		return err
	}

	img, err := readBundle(pos[0])
	if err != nil {
		return err
	}
	if img.GainMap == nil {
		return fmt.Errorf("%w: input image %s does not contain a gain map", avifhdr.ErrInvalidArgument, pos[0])
	}
	return writeApplied(pos[1], img, float32(*headroom), *depth)
}

func runConvert(args []string) error {
	fs, verbose := newFlagSet("convert")
	cicp := fs.String("cicp", "", "override input CICP as P/T/M")
	enc := addEncodeFlags(fs)
	rd := addReadFlags(fs)
	pos, err := parse(fs, verbose, args, 2)
	if err != nil {
		return err
	}

	img, err := rd.load(pos[0], *cicp)
	if err != nil {
		return err
	}
	if isBundle(pos[1]) {
		return writeBundle(pos[1], img, enc, enc.quality)
	}
	return writeImage(pos[1], img, rd.depth)
}

func runInfo(args []string) error {
	fs, verbose := newFlagSet("info")
	pos, err := parse(fs, verbose, args, 1)
	if err != nil {
		return err
	}
	return printInfo(os.Stdout, pos[0])
}
