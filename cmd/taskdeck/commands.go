package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/client"
)

type cliOptions struct {
	serverURL string
	configDir string
}

// session bundles the controller stack behind one CLI invocation.
type session struct {
	api  *client.APIClient
	ctrl *client.Controller
}

func newSession(ctx context.Context, opts *cliOptions) *session {
	api := client.NewAPIClient(opts.serverURL)
	ctrl := client.NewController(client.ControllerConfig{
		Provider: client.NewBackendProvider(api),
		API:      api,
		Store:    client.NewFileStore(opts.configDir),
	})
	ctrl.RestoreSession(ctx)
	return &session{api: api, ctrl: ctrl}
}

func (s *session) requireLogin() error {
	if s.ctrl.Status() != client.StatusLoggedIn {
		return fmt.Errorf("not logged in; run %q first", appName+" login")
	}
	return nil
}

func loginCmd(opts *cliOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				var err error
				password, err = promptLine("Password: ")
				if err != nil {
					return err
				}
			}

			s := newSession(ctx, opts)
			profile, err := s.ctrl.SignInWithCredentials(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s <%s>\n", profile.Name, profile.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func logoutCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear the persisted record",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cmd.Context(), opts)
			s.ctrl.Logout(cmd.Context())
			fmt.Println("Logged out")
			return nil
		},
	}
}

func whoamiCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cmd.Context(), opts)
			if err := s.requireLogin(); err != nil {
				return err
			}
			user := s.ctrl.CurrentUser()
			fmt.Printf("%s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
}

func signupCmd(opts *cliOptions) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if name == "" || email == "" {
				return fmt.Errorf("--name and --email are required")
			}
			if password == "" {
				var err error
				password, err = promptLine("Password: ")
				if err != nil {
					return err
				}
			}

			s := newSession(ctx, opts)
			res, err := s.api.Signup(ctx, name, email, password)
			if err != nil {
				return err
			}
			fmt.Printf("Account created for %s <%s>\n", res.User.Name, res.User.Email)

			if _, err := s.ctrl.SignInWithCredentials(ctx, email, password); err != nil {
				return fmt.Errorf("account created but sign-in failed: %w", err)
			}
			fmt.Println("Logged in")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func projectCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cmd.Context(), opts)
			if err := s.requireLogin(); err != nil {
				return err
			}
			projects, err := s.api.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPREFIX\tNAME\tSTATUS")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.TicketPrefix, p.Name, p.Status)
			}
			return w.Flush()
		},
	})

	var name, description, clientName, status, priority string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			s := newSession(cmd.Context(), opts)
			if err := s.requireLogin(); err != nil {
				return err
			}
			now := time.Now().UTC()
			project, err := s.api.CreateProject(cmd.Context(), client.CreateProjectParams{
				Name:        name,
				Description: description,
				ClientName:  clientName,
				Status:      status,
				Priority:    priority,
				StartDate:   now,
				EndDate:     now.AddDate(0, 3, 0),
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created project %s (prefix %s)\n", project.ID, project.TicketPrefix)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Project name (ticket prefix is derived from it)")
	create.Flags().StringVar(&description, "description", "", "Description")
	create.Flags().StringVar(&clientName, "client", "", "Client name")
	create.Flags().StringVar(&status, "status", "active", "Status")
	create.Flags().StringVar(&priority, "priority", "medium", "Priority")
	cmd.AddCommand(create)

	var editName, editDescription, editStatus, editPriority string
	edit := &cobra.Command{
		Use:   "edit <project-id>",
		Short: "Update project fields; unset flags are left unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cmd.Context(), opts)
			if err := s.requireLogin(); err != nil {
				return err
			}
			params := client.UpdateProjectParams{
				Name:        flagValue(cmd, "name", &editName),
				Description: flagValue(cmd, "description", &editDescription),
				Status:      flagValue(cmd, "status", &editStatus),
				Priority:    flagValue(cmd, "priority", &editPriority),
			}
			project, err := s.api.UpdateProject(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			fmt.Printf("Updated project %s (%s)\n", project.ID, project.Name)
			return nil
		},
	}
	edit.Flags().StringVar(&editName, "name", "", "Project name")
	edit.Flags().StringVar(&editDescription, "description", "", "Description")
	edit.Flags().StringVar(&editStatus, "status", "", "Status")
	edit.Flags().StringVar(&editPriority, "priority", "", "Priority")
	cmd.AddCommand(edit)

	return cmd
}

// flagValue returns the flag's value only when the caller set it, so the
// request body carries just the fields being edited.
func flagValue(cmd *cobra.Command, name string, value *string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return value
}

func taskCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	var listProject string
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks in a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listProject == "" {
				return fmt.Errorf("--project is required")
			}
			s := newSession(cmd.Context(), opts)
			if err := s.requireLogin(); err != nil {
				return err
			}
			tasks, err := s.api.ListTasks(cmd.Context(), listProject)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TICKET\tSTATUS\tTITLE")
			for _, task := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\n", task.TicketNumber, task.Status, task.Title)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&listProject, "project", "", "Project ID")
	cmd.AddCommand(list)

	var createProject, title, description, status string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a task (ticket number is assigned by the server)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if createProject == "" || title == "" {
				return fmt.Errorf("--project and --title are required")
			}
			s := newSession(cmd.Context(), opts)
			if err := s.requireLogin(); err != nil {
				return err
			}
			now := time.Now().UTC()
			task, err := s.api.CreateTask(cmd.Context(), client.CreateTaskParams{
				ProjectID:   createProject,
				Title:       title,
				Description: description,
				Status:      status,
				StartDate:   now,
				DueDate:     now.AddDate(0, 0, 14),
			}, "")
			if err != nil {
				return err
			}
			fmt.Printf("Created %s: %s\n", task.TicketNumber, task.Title)
			return nil
		},
	}
	create.Flags().StringVar(&createProject, "project", "", "Project ID")
	create.Flags().StringVar(&title, "title", "", "Task title")
	create.Flags().StringVar(&description, "description", "", "Task description")
	create.Flags().StringVar(&status, "status", "pending", "Task status")
	cmd.AddCommand(create)

	var editTitle, editDescription, editStatus string
	edit := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Update task fields; unset flags are left unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cmd.Context(), opts)
			if err := s.requireLogin(); err != nil {
				return err
			}
			params := client.UpdateTaskParams{
				Title:       flagValue(cmd, "title", &editTitle),
				Description: flagValue(cmd, "description", &editDescription),
				Status:      flagValue(cmd, "status", &editStatus),
			}
			task, err := s.api.UpdateTask(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			fmt.Printf("Updated %s: %s\n", task.TicketNumber, task.Title)
			return nil
		},
	}
	edit.Flags().StringVar(&editTitle, "title", "", "Task title")
	edit.Flags().StringVar(&editDescription, "description", "", "Task description")
	edit.Flags().StringVar(&editStatus, "status", "", "Task status")
	cmd.AddCommand(edit)

	var previewProject string
	nextNumber := &cobra.Command{
		Use:   "next-number",
		Short: "Preview the next ticket number for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if previewProject == "" {
				return fmt.Errorf("--project is required")
			}
			s := newSession(cmd.Context(), opts)
			if err := s.requireLogin(); err != nil {
				return err
			}
			number, err := s.api.NextTicketNumber(cmd.Context(), previewProject)
			if err != nil {
				return err
			}
			fmt.Println(number)
			return nil
		},
	}
	nextNumber.Flags().StringVar(&previewProject, "project", "", "Project ID")
	cmd.AddCommand(nextNumber)

	return cmd
}

func membersCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage team members",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List team members",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cmd.Context(), opts)
			if err := s.requireLogin(); err != nil {
				return err
			}
			members, err := s.api.ListTeamMembers(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tROLE\tEMAIL")
			for _, m := range members {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Role, m.Email)
			}
			return w.Flush()
		},
	})

	return cmd
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
