package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/loupedev/loupe/internal/api"
	"github.com/loupedev/loupe/internal/index"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		chatAgent, agentErr := rt.newAgent()
		if agentErr != nil {
			log.Printf("serve: chat disabled: %v", agentErr)
		}

		if serveWatch {
			watcher, err := index.NewWatcher(rt.manager)
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()
		}

		return api.NewServer(rt.manager, chatAgent).ListenAndServe(serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":8732", "listen address")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "re-index files as they change")
}
