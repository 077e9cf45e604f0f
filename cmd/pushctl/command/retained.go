package command

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DrmagicE/pushstore"
)

var retainedQoS uint8

func printMessage(w io.Writer, msg *pushstore.StoredMessage) {
	bold.Fprint(w, msg.Topic)
	fmt.Fprintf(w, " qos=%d payload=%q\n", msg.QoS, msg.Payload)
}

// NewRetainedCmd creates the retained command group.
func NewRetainedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retained",
		Short: "Manage retained messages",
	}
	storeCmd := &cobra.Command{
		Use:   "store <topic> <payload>",
		Short: "Set the retained message of a topic, an empty payload removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			w := cmd.OutOrStdout()
			s, _, err := openStore(ctx, w)
			if err != nil {
				return err
			}
			defer s.Close()
			if err = s.StoreRetained(ctx, args[0], []byte(args[1]), retainedQoS); err != nil {
				return err
			}
			printOK(w, "stored %s", args[0])
			return nil
		},
	}
	storeCmd.Flags().Uint8VarP(&retainedQoS, "qos", "q", 0, "The QoS of the message")
	cmd.AddCommand(storeCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "search <topic>...",
		Short: "Print the retained messages of the given topic names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			w := cmd.OutOrStdout()
			s, _, err := openStore(ctx, w)
			if err != nil {
				return err
			}
			defer s.Close()
			msgs, err := s.SearchRetained(ctx, args...)
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				printMessage(w, msg)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clean <topic>",
		Short: "Remove the retained message of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			w := cmd.OutOrStdout()
			s, _, err := openStore(ctx, w)
			if err != nil {
				return err
			}
			defer s.Close()
			if err = s.CleanRetained(ctx, args[0]); err != nil {
				return err
			}
			printOK(w, "cleaned %s", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every retained message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			w := cmd.OutOrStdout()
			s, _, err := openStore(ctx, w)
			if err != nil {
				return err
			}
			defer s.Close()
			n := 0
			err = s.IterateRetained(ctx, func(msg *pushstore.StoredMessage) bool {
				printMessage(w, msg)
				n++
				return true
			})
			if err != nil {
				return err
			}
			bold.Fprintf(w, "%d retained message(s)\n", n)
			return nil
		},
	})
	return cmd
}
