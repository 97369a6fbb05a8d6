package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oisee/pdpy11go/pkg/compiler"
	"github.com/oisee/pdpy11go/pkg/container"
	"github.com/oisee/pdpy11go/pkg/ignore"
	"github.com/oisee/pdpy11go/pkg/linker"
)

func main() {
	var (
		forceBin, forceRaw, forceSav, forceWav, forceTurboWav bool
		outputPath                                            string
		linkFlag                                               string
		syntax                                                  string
		defines                                                 []string
		emitListing                                             bool
		projectDir                                              string
		sublime                                                  bool
	)

	rootCmd := &cobra.Command{
		Use:   "pdpy11 [files...]",
		Short: "Cross-assemble PDP-11 source into a loadable binary image",
		RunE: func(cmd *cobra.Command, args []string) error {
			format := forcedFormat(forceBin, forceRaw, forceSav, forceWav, forceTurboWav)

			opts := compiler.Options{
				Syntax:        syntax,
				ProjectRoot:   projectDir,
				ForceFormat:   format,
				OutputPath:    outputPath,
				EmitListing:   emitListing,
				SublimeErrors: sublime,
			}
			if linkFlag != "" {
				n, err := parseIntLiteral(linkFlag)
				if err != nil {
					return fmt.Errorf("--link: %w", err)
				}
				opts.LinkAddress = n
			}

			defs, err := parseDefines(defines)
			if err != nil {
				return err
			}
			opts.Defines = defs

			if projectDir != "" {
				return runProject(opts)
			}
			if len(args) == 0 {
				return fmt.Errorf("no source files given (pass files or --project DIR)")
			}
			return runFiles(opts, args)
		},
	}

	rootCmd.Flags().BoolVar(&forceBin, "bin", false, "Force .bin container output")
	rootCmd.Flags().BoolVar(&forceRaw, "raw", false, "Force raw container output")
	rootCmd.Flags().BoolVar(&forceSav, "sav", false, "Force RT-11 .sav container output")
	rootCmd.Flags().BoolVar(&forceWav, "wav", false, "Force .wav cassette container output")
	rootCmd.Flags().BoolVar(&forceTurboWav, "turbo-wav", false, "Force turbo-loader .wav container output")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (single-file mode only)")
	rootCmd.Flags().StringVar(&linkFlag, "link", "", "Default link origin (octal unless prefixed)")
	rootCmd.Flags().StringVar(&syntax, "syntax", "pdpy11", "Dialect: pdp11asm or pdpy11")
	rootCmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "Predefine a global: name=value")
	rootCmd.Flags().BoolVar(&emitListing, "lst", false, "Emit a listing file alongside the output")
	rootCmd.Flags().StringVar(&projectDir, "project", "", "Project mode: compile every include-root under DIR")
	rootCmd.Flags().BoolVar(&sublime, "sublime", false, "Use the Sublime-compatible single-line error format")

	if err := rootCmd.Execute(); err != nil {
		reportError(err, sublime)
		os.Exit(1)
	}
}

func forcedFormat(bin, raw, sav, wav, turboWav bool) string {
	switch {
	case bin:
		return "bin"
	case raw:
		return "raw"
	case sav:
		return "sav"
	case wav:
		return "wav"
	case turboWav:
		return "turbo-wav"
	default:
		return ""
	}
}

// parseIntLiteral applies spec.md §6's -D/--link radix rule: "0x…"/"0o…"
// prefixed is hex/octal by prefix, a trailing "." forces decimal, else
// octal.
func parseIntLiteral(s string) (int, error) {
	var n int64
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		n, err = strconv.ParseInt(s[2:], 16, 64)
	case strings.HasPrefix(s, "0o") || strings.HasPrefix(s, "0O"):
		n, err = strconv.ParseInt(s[2:], 8, 64)
	case strings.HasSuffix(s, "."):
		n, err = strconv.ParseInt(strings.TrimSuffix(s, "."), 10, 64)
	default:
		n, err = strconv.ParseInt(s, 8, 64)
	}
	return int(n), err
}

func parseDefines(raw []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(raw))
	for _, d := range raw {
		parts := strings.SplitN(d, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("-D%s: expected name=value", d)
		}
		name, valueStr := parts[0], parts[1]
		out[name] = parseDefineValue(valueStr)
	}
	return out, nil
}

// parseDefineValue applies spec.md §6's -D value rule: quoted/slash-
// delimited is a string; otherwise it's an integer literal.
func parseDefineValue(s string) interface{} {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '/') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	if n, err := parseIntLiteral(s); err == nil {
		return n
	}
	return s
}

func runFiles(opts compiler.Options, files []string) error {
	read := func(path string) (string, error) {
		b, err := os.ReadFile(path)
		return string(b), err
	}
	c := compiler.New(opts, read)
	for _, f := range files {
		if err := c.Run(f); err != nil {
			return err
		}
	}
	img, err := linker.Link(c)
	if err != nil {
		return err
	}
	return writeOutputs(c, img, opts, files[0])
}

func runProject(opts compiler.Options) error {
	read := func(path string) (string, error) {
		b, err := os.ReadFile(path)
		return string(b), err
	}

	var matcher *ignore.Matcher
	if b, err := os.ReadFile(filepath.Join(opts.ProjectRoot, ".pdpy11ignore")); err == nil {
		matcher = ignore.Parse(string(b))
	} else {
		matcher = ignore.Parse("")
	}

	roots, err := discoverIncludeRoots(opts.ProjectRoot, matcher)
	if err != nil {
		return err
	}

	c := compiler.New(opts, read)
	for i, root := range roots {
		if i > 0 {
			c.ResetForRoot()
		}
		if err := c.Run(root); err != nil {
			return err
		}
		img, err := linker.Link(c)
		if err != nil {
			return err
		}
		if err := writeOutputs(c, img, opts, root); err != nil {
			return err
		}
	}
	return nil
}

// discoverIncludeRoots walks projectDir for source files containing at
// least one make_* directive (spec.md §4.5's definition of an include
// root), skipping anything .pdpy11ignore excludes.
func discoverIncludeRoots(projectDir string, matcher *ignore.Matcher) ([]string, error) {
	var roots []string
	err := filepath.Walk(projectDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(projectDir, path)
		if matcher.Match(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".mac") {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.Contains(string(b), "make_") {
			roots = append(roots, path)
		}
		return nil
	})
	return roots, err
}

func writeOutputs(c *compiler.Compiler, img *linker.Image, opts compiler.Options, sourceFile string) error {
	targets := c.Targets
	if opts.ForceFormat != "" {
		path := opts.OutputPath
		if path == "" {
			path = strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + defaultExt(opts.ForceFormat)
		}
		targets = []compiler.BuildTarget{{Format: opts.ForceFormat, Path: path}}
	}

	for _, target := range targets {
		out := encodeContainer(target, img)
		if err := os.WriteFile(target.Path, out, 0644); err != nil {
			return &compiler.Diagnostic{Kind: compiler.KindIO, File: target.Path, Message: err.Error()}
		}
	}

	if opts.EmitListing {
		lines := make([]container.LabelLine, len(img.Labels))
		for i, l := range img.Labels {
			lines[i] = container.LabelLine{Address: l.Address, Name: l.Name}
		}
		listing := container.Listing(map[string][]container.LabelLine{sourceFile: lines})
		lstPath := strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + ".lst"
		if err := os.WriteFile(lstPath, []byte(listing), 0644); err != nil {
			return &compiler.Diagnostic{Kind: compiler.KindIO, File: lstPath, Message: err.Error()}
		}
	}
	return nil
}

func encodeContainer(target compiler.BuildTarget, img *linker.Image) []byte {
	switch target.Format {
	case "raw":
		return container.Raw(img.Bytes)
	case "sav":
		return container.Sav(img.LinkAddress, img.FinalAddress, img.Bytes)
	case "turbo-wav":
		return container.TurboWav(img.LinkAddress, target.Name2, img.Bytes)
	case "wav":
		return container.Wav(img.LinkAddress, target.Name2, img.Bytes)
	default:
		return container.Bin(img.LinkAddress, img.Bytes)
	}
}

func defaultExt(format string) string {
	switch format {
	case "raw":
		return ".raw"
	case "sav":
		return ".sav"
	case "turbo-wav", "wav":
		return ".wav"
	default:
		return ".bin"
	}
}

func reportError(err error, sublime bool) {
	if d, ok := err.(*compiler.Diagnostic); ok {
		if sublime {
			fmt.Fprintln(os.Stderr, d.Sublime())
		} else {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
