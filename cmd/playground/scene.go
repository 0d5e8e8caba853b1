package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/broken-bytes/Playground/internal/data"
	"github.com/broken-bytes/Playground/internal/persist"
)

func newSceneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Move scenes between YAML files and the scene store",
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>...",
		Short: "Store YAML scenes in the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			repo := persist.NewSceneRepo(db)
			for _, path := range args {
				s, err := data.LoadScene(path)
				if err != nil {
					return err
				}
				changed, err := repo.Save(cmd.Context(), s)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintf(cmd.OutOrStdout(), "unchanged %s\n", s.Name)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d entities)\n", s.Name, len(s.Entities))
			}
			return nil
		},
	}

	var outPath string
	exportCmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write a stored scene as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			s, err := persist.NewSceneRepo(db).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			raw, err := s.Marshal()
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			}
			return os.WriteFile(outPath, raw, 0o644)
		},
	}
	exportCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored scenes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			names, err := persist.NewSceneRepo(db).List(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	cmd.AddCommand(importCmd, exportCmd, listCmd)
	return cmd
}
