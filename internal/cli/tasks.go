package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taskminder/internal/events"
	"taskminder/internal/models"

	"github.com/spf13/cobra"
)

func newListCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks in stored order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.store.Load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks.")
				return nil
			}

			now := time.Now()
			for i, task := range tasks {
				marker := " "
				if task.ShouldRun(now) {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %2d. %s\n", marker, i+1, describe(task))
			}
			return nil
		},
	}
}

func newAddCmd(open appOpener) *cobra.Command {
	var (
		interval string
		enable   bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
		Long:  "Add a task. Unknown intervals fall back to daily. New tasks start disabled unless --enable is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("task name must not be empty")
			}

			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			if _, exists := findTask(tasks, name); exists {
				return fmt.Errorf("task %q already exists", name)
			}

			task := models.NewTask(name, models.ParseInterval(strings.TrimSpace(interval)))
			task.Enabled = enable
			if err := a.store.Save(cmd.Context(), []models.Task{task}); err != nil {
				return err
			}
			a.publish(events.EventTaskAdded, task)

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", describe(task))
			return nil
		},
	}

	cmd.Flags().StringVarP(&interval, "interval", "i", "daily", "hourly, daily or weekly")
	cmd.Flags().BoolVarP(&enable, "enable", "e", false, "Enable the task right away")
	return cmd
}

func newToggleCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <name>",
		Short: "Enable or disable a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			task, ok := findTask(tasks, args[0])
			if !ok {
				return fmt.Errorf("task %q not found", args[0])
			}

			task.Enabled = !task.Enabled
			if err := a.store.Save(cmd.Context(), []models.Task{task}); err != nil {
				return err
			}
			a.publish(events.EventTaskToggled, task)

			fmt.Fprintf(cmd.OutOrStdout(), "Toggled %s\n", describe(task))
			return nil
		},
	}
}

func newRemoveCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>...",
		Short: "Remove tasks by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.store.Load(cmd.Context())
			if err != nil {
				return err
			}

			var found []models.Task
			for _, name := range args {
				if task, ok := findTask(tasks, name); ok {
					found = append(found, task)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "Task %q not found, skipping\n", name)
				}
			}
			if len(found) == 0 {
				return nil
			}

			if err := a.store.Remove(cmd.Context(), args...); err != nil {
				return err
			}
			for _, task := range found {
				a.publish(events.EventTaskRemoved, task)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", task.Name)
			}
			return nil
		},
	}
}

func newClearCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Save(cmd.Context(), nil); err != nil {
				return err
			}
			a.publish(events.EventTasksCleared, models.Task{})

			fmt.Fprintln(cmd.OutOrStdout(), "All tasks cleared.")
			return nil
		},
	}
}
