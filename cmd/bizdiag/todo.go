package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bizdiag/internal/todo"
)

func newTodoCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage the follow-up task list",
	}

	withList := func(fn func(cmd *cobra.Command, l *todo.List, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			env, err := root.open()
			if err != nil {
				return err
			}
			defer env.Close()
			return fn(cmd, todo.New(env.store, env.log.Named("todo")), args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List tasks",
			Args:  cobra.NoArgs,
			RunE: withList(func(cmd *cobra.Command, l *todo.List, _ []string) error {
				items := l.All(cmd.Context())
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No hay tareas.")
					return nil
				}
				for _, it := range items {
					mark := "[ ]"
					text := it.Text
					if it.Completed {
						mark = color.GreenString("[x]")
						text = color.HiBlackString("%s", it.Text)
					}
					fmt.Fprintf(out, "%s %s  %s\n", mark, text, color.HiBlackString("%s", it.ID))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "add TEXT...",
			Short: "Add a task",
			Args:  cobra.MinimumNArgs(1),
			RunE: withList(func(cmd *cobra.Command, l *todo.List, args []string) error {
				it, err := l.Add(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "Tarea añadida: "+it.ID)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "toggle ID",
			Short: "Mark a task done or pending",
			Args:  cobra.ExactArgs(1),
			RunE: withList(func(cmd *cobra.Command, l *todo.List, args []string) error {
				it, err := l.Toggle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				state := "pendiente"
				if it.Completed {
					state = "completada"
				}
				printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Tarea %s", state))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a task",
			Args:  cobra.ExactArgs(1),
			RunE: withList(func(cmd *cobra.Command, l *todo.List, args []string) error {
				if err := l.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "Tarea eliminada")
				return nil
			}),
		},
	)
	return cmd
}
