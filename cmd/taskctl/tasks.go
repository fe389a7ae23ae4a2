package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/example/student-task-manager/client"
	domain "github.com/example/student-task-manager/domain/task"
	"github.com/example/student-task-manager/view"
	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	var (
		filter, search, sortBy string
		asJSON                 bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			tasks := s.View(view.Query{
				Filter: view.ParseFilter(filter),
				Search: search,
				SortBy: view.ParseSort(sortBy),
			})
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(tasks)
			}
			return printTasks(a.out, tasks)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(view.FilterAll), "all, pending or completed")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive text to match in the title")
	cmd.Flags().StringVar(&sortBy, "sort", string(view.SortCreatedAt), "createdAt, priority or dueDate")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var (
		in  domain.NewTask
		due string
	)
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.Title = args[0]
			}
			if due != "" {
				d, err := domain.ParseDate(due)
				if err != nil {
					return err
				}
				in.DueDate = &d
			}
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			t, err := s.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "task title")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "task description")
	cmd.Flags().StringVarP((*string)(&in.Priority), "priority", "p", "", "low, medium or high (default medium)")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var (
		title, description, priority, due string
		clearDue, completed               bool
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u client.Update
			flags := cmd.Flags()
			if flags.Changed("title") {
				u.Title = &title
			}
			if flags.Changed("description") {
				u.Description = &description
			}
			if flags.Changed("priority") {
				p := domain.Priority(priority)
				u.Priority = &p
			}
			if flags.Changed("due") {
				d, err := domain.ParseDate(due)
				if err != nil {
					return err
				}
				u.DueDate = &d
			}
			u.ClearDueDate = clearDue
			if flags.Changed("completed") {
				u.Completed = &completed
			}
			if u.IsEmpty() {
				return fmt.Errorf("nothing to change; pass at least one field flag")
			}

			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			t, err := s.Update(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "new due date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	cmd.Flags().BoolVar(&completed, "completed", false, "mark completed (--completed=false to reopen)")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	return cmd
}

func (a *app) toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Flip a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			t, err := s.Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s is now %s\n", t.ID, status(t.Completed))
			return nil
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func status(completed bool) string {
	if completed {
		return "completed"
	}
	return "pending"
}

func printTasks(w io.Writer, tasks []domain.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE")
	for _, t := range tasks {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, status(t.Completed), t.Priority, due, oneLine(t.Title))
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
