package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage project notes fed to the chat agent",
}

var (
	noteAddCategory  string
	noteListCategory string
)

var notesAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Record a project note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		note, err := rt.notes().Add(noteAddCategory, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("Added note %s\n", note.ID)
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List project notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		notes, err := rt.notes().List(noteListCategory)
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Println("No notes.")
			return nil
		}
		for _, n := range notes {
			fmt.Printf("%s  [%s] %s\n", n.ID, n.Category, n.Content)
		}
		return nil
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.notes().Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	notesAddCmd.Flags().StringVarP(&noteAddCategory, "category", "c", "general", "note category")
	notesListCmd.Flags().StringVarP(&noteListCategory, "category", "c", "", "filter by category")
	notesCmd.AddCommand(notesAddCmd, notesListCmd, notesDeleteCmd)
}
