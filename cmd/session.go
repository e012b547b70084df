package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/sessionhub/db"
	"github.com/xiaoyuanzhu-com/sessionhub/sessions"
)

// NewSessionCommand creates the session command group
func NewSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage tracked sessions",
	}

	cmd.AddCommand(newSessionListCommand())
	cmd.AddCommand(newSessionCreateCommand())
	cmd.AddCommand(newSessionCompleteCommand())
	cmd.AddCommand(newSessionWaitingCommand())
	cmd.AddCommand(newSessionDeleteCommand())

	return cmd
}

func newSessionListCommand() *cobra.Command {
	var (
		active    bool
		completed bool
		waiting   bool
		projectID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently accessed first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if active && completed {
				return fmt.Errorf("--active and --completed are mutually exclusive")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			filter := db.SessionFilter{Limit: limit}
			if active || completed {
				filter.Completed = &completed
			}
			if waiting {
				filter.Waiting = &waiting
			}
			if projectID != "" {
				filter.ProjectID = &projectID
			}

			list, err := a.sessions.List(filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No sessions found")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, s := range list {
				rows = append(rows, []string{
					s.ID,
					truncate(s.Name, 40),
					sessionState(&s),
					formatMs(s.LastAccessedAt),
					s.ProjectPath,
				})
			}
			return writeTable(out, []string{"ID", "NAME", "STATE", "LAST ACCESSED", "PATH"}, rows)
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "Only sessions that are not completed")
	cmd.Flags().BoolVar(&completed, "completed", false, "Only completed sessions")
	cmd.Flags().BoolVar(&waiting, "waiting", false, "Only sessions waiting for input")
	cmd.Flags().StringVar(&projectID, "project", "", "Only sessions of this project id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of sessions (0 = all)")

	return cmd
}

func sessionState(s *db.Session) string {
	switch {
	case s.IsCompleted:
		return "completed"
	case s.IsWaitingForInput:
		return "waiting"
	default:
		return "active"
	}
}

func newSessionCreateCommand() *cobra.Command {
	var (
		path        string
		projectID   string
		groupID     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Start tracking a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var opts sessions.CreateOptions
			if projectID != "" {
				opts.ProjectID = &projectID
			}
			if groupID != "" {
				opts.GroupID = &groupID
			}
			if description != "" {
				opts.Description = &description
			}

			session, err := a.sessions.Create(args[0], path, opts)
			if err != nil {
				return err
			}
			return printSession(cmd, a.exported(session))
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Project path (defaults to the project's path)")
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&groupID, "group", "", "Project group id")
	cmd.Flags().StringVar(&description, "description", "", "Free-text description")

	return cmd
}

func newSessionCompleteCommand() *cobra.Command {
	var reopen bool

	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a session completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var session *db.Session
			if reopen {
				session, err = a.sessions.Reopen(args[0])
			} else {
				session, err = a.sessions.Complete(args[0])
			}
			if err != nil {
				return err
			}
			return printSession(cmd, a.exported(session))
		},
	}

	cmd.Flags().BoolVar(&reopen, "reopen", false, "Clear the completion instead")
	return cmd
}

func newSessionWaitingCommand() *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "waiting <id>",
		Short: "Flag a session as waiting for input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			session, err := a.sessions.SetWaiting(args[0], !off)
			if err != nil {
				return err
			}
			return printSession(cmd, a.exported(session))
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Clear the waiting flag")
	return cmd
}

func newSessionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session from this device only",
		Long: `Delete removes the session from the local store. The shared sync folder is
not touched, so a sibling device that still has the session will bring it
back on the next import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sessions.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}

func printSession(cmd *cobra.Command, s *db.Session) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, s)
	}
	return writeTable(out, []string{"FIELD", "VALUE"}, [][]string{
		{"id", s.ID},
		{"name", s.Name},
		{"state", sessionState(s)},
		{"path", s.ProjectPath},
		{"project", deref(s.ProjectID)},
		{"group", deref(s.GroupID)},
		{"created", formatMs(s.CreatedAt)},
		{"last accessed", formatMs(s.LastAccessedAt)},
	})
}
