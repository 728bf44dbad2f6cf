package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loupedev/loupe/internal/index"
)

var (
	searchKeywordMode bool
	searchTopK        int
	searchMinScore    float32
	searchFile        string
	searchLanguage    string
	searchChunkType   string
	searchJSON        bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed workspace",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		query := strings.Join(args, " ")

		var results []index.SearchResult
		if searchKeywordMode {
			results, err = rt.manager.SearchKeyword(query, searchLanguage, searchTopK)
			if err != nil {
				return err
			}
		} else {
			results = rt.manager.Search(cmd.Context(), query, index.SearchOptions{
				TopK:      searchTopK,
				MinScore:  searchMinScore,
				File:      searchFile,
				Language:  searchLanguage,
				ChunkType: searchChunkType,
			})
		}

		if searchJSON {
			return json.NewEncoder(os.Stdout).Encode(results)
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. %s (%s, %.2f)\n", i+1, r.Location(), r.ChunkType, r.Score)
			snippet := r.Highlight
			if snippet == "" {
				snippet = r.Snippet
			}
			if snippet == "" {
				snippet = r.Content
			}
			for _, line := range strings.Split(snippet, "\n") {
				fmt.Printf("   %s\n", line)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVarP(&searchKeywordMode, "keyword", "k", false, "BM25 keyword search instead of semantic")
	searchCmd.Flags().IntVarP(&searchTopK, "top", "n", 20, "maximum number of results")
	searchCmd.Flags().Float32Var(&searchMinScore, "min-score", index.DefaultMinScore, "minimum similarity score, 0 disables the floor")
	searchCmd.Flags().StringVar(&searchFile, "file", "", "restrict to paths containing this substring")
	searchCmd.Flags().StringVarP(&searchLanguage, "language", "l", "", "restrict to one language")
	searchCmd.Flags().StringVarP(&searchChunkType, "type", "t", "", "restrict to one chunk type")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit raw JSON")
}
