package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/sessionhub/db"
)

// NewProjectCommand creates the project command group
func NewProjectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(newProjectListCommand())
	cmd.AddCommand(newProjectCreateCommand())
	cmd.AddCommand(newProjectDeleteCommand())

	return cmd
}

func newProjectListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			projects, err := a.sessions.ListProjects()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects found")
				return nil
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{p.ID, p.Name, string(p.Category), p.Path})
			}
			return writeTable(out, []string{"ID", "NAME", "CATEGORY", "PATH"}, rows)
		},
	}
}

func newProjectCreateCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "create <name> <path>",
		Short: "Register a project directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			project, err := a.sessions.CreateProject(args[0], args[1], db.ProjectCategory(category))
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), project)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", project.Name, project.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", string(db.ProjectCategoryPrimary), "Category: primary, client or internal")
	return cmd
}

func newProjectDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project; its sessions are kept without a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sessions.DeleteProject(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}
}
