package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewQueueCmd creates the queue command group.
func NewQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the offline queue of a client",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <client id>",
		Short: "List the queued messages in delivery order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			w := cmd.OutOrStdout()
			s, _, err := openStore(ctx, w)
			if err != nil {
				return err
			}
			defer s.Close()
			evs, err := s.ListMessagesInSession(ctx, args[0])
			if err != nil {
				return err
			}
			bold.Fprintf(w, "%d message(s)\n", len(evs))
			for _, ev := range evs {
				fmt.Fprintln(w, ev)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clean <client id>",
		Short: "Drop every piece of session state of the client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			w := cmd.OutOrStdout()
			s, _, err := openStore(ctx, w)
			if err != nil {
				return err
			}
			defer s.Close()
			if err = s.DestroySession(ctx, args[0]); err != nil {
				return err
			}
			printOK(w, "session of %s destroyed", args[0])
			return nil
		},
	})
	return cmd
}
