package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the workspace index",
}

var buildForce bool

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index the workspace (incremental unless --force)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		stats, err := rt.manager.Build(cmd.Context(), buildForce)
		if err != nil {
			return err
		}

		fmt.Printf("Processed %d files (%d skipped), %d chunks in %s\n",
			stats.FilesProcessed, stats.FilesSkipped, stats.ChunksCreated, stats.Duration.Round(time.Millisecond))
		for _, e := range stats.Errors {
			fmt.Printf("  error: %s\n", e)
		}
		return nil
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		stats := rt.manager.Stats()
		fmt.Printf("Files:   %d\n", stats.TotalFiles)
		fmt.Printf("Chunks:  %d\n", stats.TotalChunks)
		fmt.Printf("Vectors: %d (dimension %d)\n", stats.TotalVectors, stats.Dimension)
		if stats.TotalVectors > stats.TotalChunks {
			fmt.Printf("  %d stale vectors; run 'loupe index build --force' to reclaim\n",
				stats.TotalVectors-stats.TotalChunks)
		}
		if len(stats.Languages) > 0 {
			fmt.Println("Languages:")
			for lang, n := range stats.Languages {
				fmt.Printf("  %-12s %d\n", lang, n)
			}
		}
		return nil
	},
}

var indexUpdateCmd = &cobra.Command{
	Use:   "update <path>",
	Short: "Re-index a single file (or remove it if deleted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		result, err := rt.manager.UpdateFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if result.Error != "" {
			return fmt.Errorf("%s: %s", args[0], result.Error)
		}
		fmt.Printf("%s: %s (%d chunks)\n", args[0], result.Action, result.Chunks)
		return nil
	},
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.manager.Clear(); err != nil {
			return err
		}
		fmt.Println("Index cleared.")
		return nil
	},
}

func init() {
	indexBuildCmd.Flags().BoolVarP(&buildForce, "force", "f", false, "re-index every file, ignoring stored hashes")
	indexCmd.AddCommand(indexBuildCmd, indexStatsCmd, indexUpdateCmd, indexClearCmd)
}
