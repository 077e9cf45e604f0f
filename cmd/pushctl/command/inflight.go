package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/DrmagicE/pushstore"
)

// NewInflightCmd creates the inflight command group.
func NewInflightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inflight",
		Short: "Inspect the in-flight state of a client",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <client id> <packet id>",
		Short: "Print the packet id reservation and the cached publish or pubrel of a packet id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid packet id %q: %w", args[1], err)
			}
			key := pushstore.Key{ClientID: args[0], PacketID: uint16(pid)}
			ctx := context.Background()
			w := cmd.OutOrStdout()
			s, _, err := openStore(ctx, w)
			if err != nil {
				return err
			}
			defer s.Close()
			pub, err := s.SearchQoSPublishMessage(ctx, key)
			if err != nil {
				return err
			}
			rel, err := s.SearchPubrelMessage(ctx, key)
			if err != nil {
				return err
			}
			bold.Fprintln(w, key)
			switch {
			case pub != nil:
				fmt.Fprintf(w, "awaiting ack: %s\n", pub)
			case rel != nil:
				fmt.Fprintf(w, "awaiting pubcomp: topic=%s\n", rel.Topic)
			default:
				warning.Fprintln(w, "nothing in flight")
			}
			return nil
		},
	})
	return cmd
}
