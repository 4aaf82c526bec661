package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/patentalloy/internal/extract"
	"github.com/dgallion1/patentalloy/internal/parser"
)

// Printed to stderr when a document has no alloy data, keeping stdout empty.
const noAlloyMessage = "No alloy information found."

func newExtractCmd(a *app) *cobra.Command {
	var (
		modelPath string
		chunkSize int
		overlap   int
		showText  bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract alloy properties from one document and print them",
		Long: "Parse a patent document (pdf, docx, html, md, txt), run the chunked extraction\n" +
			"over its text and print one \"Property: value\" line per property.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			tree, err := parser.ParseBytes(data, filepath.Base(path), a.parseOptions())
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			text := tree.Text()
			out := cmd.OutOrStdout()
			if showText {
				fmt.Fprintln(out, text)
				fmt.Fprintln(out)
			}

			opts := a.extractOptions()
			opts.ModelPath = modelPath
			if cmd.Flags().Changed("chunk-size") {
				opts.ChunkSize = chunkSize
			}
			if cmd.Flags().Changed("overlap") {
				opts.Overlap = overlap
			}
			opts.Reporter = extract.LogReporter{Log: a.log.With("file", filepath.Base(path))}

			result, err := a.newPipeline().Extract(cmd.Context(), text, opts)
			if err != nil {
				return err
			}
			if result == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), noAlloyMessage)
				return nil
			}
			fmt.Fprintln(out, result)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&modelPath, "model", "m", "", "GGUF model path (overrides model.path)")
	f.IntVar(&chunkSize, "chunk-size", 0, "window size in characters (overrides extract.chunk_size)")
	f.IntVar(&overlap, "overlap", 0, "characters shared by consecutive windows (overrides extract.overlap)")
	f.BoolVar(&showText, "text", false, "print the extracted document text before the properties")
	return cmd
}
