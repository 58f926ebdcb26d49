package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tasktracker/internal/models"
	"tasktracker/internal/workflow"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"p"},
	Short:   "Manage projects from the terminal",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects in sidebar order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, store, err := openStore(os.Stderr)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		projects, err := store.ListProjects(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTASKS\tIN PROGRESS\tDONE\tBLOCKED")
		for _, p := range projects {
			tasks, err := store.ListTasksByProject(ctx, p.ID)
			if err != nil {
				return err
			}
			sum := workflow.Summarize(tasks)
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\n", p.ID, p.Name, sum.Total, sum.InProgress, sum.Done, sum.Blocked)
		}
		return w.Flush()
	},
}

var projectsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project at the end of the list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, store, err := openStore(os.Stderr)
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := store.CreateProject(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project #%d %q\n", p.ID, p.Name)
		return nil
	},
}

var projectsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a project",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		_, _, store, err := openStore(os.Stderr)
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := store.RenameProject(cmd.Context(), id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed project #%d to %q\n", p.ID, p.Name)
		return nil
	},
}

var projectsRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a project and all of its tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		_, _, store, err := openStore(os.Stderr)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteProject(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted project #%d\n", id)
		return nil
	},
}

var projectsMoveCmd = &cobra.Command{
	Use:   "move <id> <target-id>",
	Short: "Move a project into the position of another project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dragged, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		target, err := parseIDArg(args[1])
		if err != nil {
			return err
		}
		_, _, store, err := openStore(os.Stderr)
		if err != nil {
			return err
		}
		defer store.Close()

		projects, moved, err := store.MoveProject(cmd.Context(), dragged, target)
		if err != nil {
			return err
		}
		if !moved {
			fmt.Fprintln(cmd.OutOrStdout(), "Order unchanged")
			return nil
		}
		for i, p := range projects {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (#%d)\n", i+1, p.Name, p.ID)
		}
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd, projectsAddCmd, projectsRenameCmd, projectsRmCmd, projectsMoveCmd)
}

func parseIDArg(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", models.ErrValidation, raw)
	}
	return id, nil
}
