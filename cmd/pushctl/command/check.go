package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/store"
)

var checkTimeout time.Duration

// NewCheckCmd creates the check command, which opens the configured backend and runs a round trip
// through every store with a throwaway client id.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the configured persistence is reachable and usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			return runCheck(ctx, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVarP(&checkTimeout, "timeout", "t", 10*time.Second, "The timeout of the whole check")
	return cmd
}

func runCheck(ctx context.Context, w io.Writer) error {
	s, _, err := openStore(ctx, w)
	if err != nil {
		failure.Fprintln(w, "FAIL open")
		return err
	}
	defer s.Close()
	printOK(w, "open")

	cid := "pushctl-check-" + uuid.NewString()
	defer s.DestroySession(context.Background(), cid)
	steps := []struct {
		name string
		fn   func(ctx context.Context, s *store.Store, cid string) error
	}{
		{"session queue", checkQueue},
		{"qos2 exchange", checkFlow},
		{"retained", checkRetained},
		{"destroy session", func(ctx context.Context, s *store.Store, cid string) error {
			return s.DestroySession(ctx, cid)
		}},
	}
	for _, step := range steps {
		if err := step.fn(ctx, s, cid); err != nil {
			failure.Fprintf(w, "FAIL %s\n", step.name)
			return err
		}
		printOK(w, step.name)
	}
	return nil
}

func checkQueue(ctx context.Context, s *store.Store, cid string) error {
	ev := &pushstore.PublishEvent{ClientID: cid, Topic: "pushctl/check", Payload: []byte("check"), QoS: pushstore.QoS1, PacketID: 1}
	if err := s.StoreMessageToSessionForPublish(ctx, ev); err != nil {
		return err
	}
	evs, err := s.ListMessagesInSession(ctx, cid)
	if err != nil {
		return err
	}
	if len(evs) != 1 || !ev.Equal(evs[0]) {
		return fmt.Errorf("unexpected queue content: %v", evs)
	}
	return s.RemoveMessageInSessionForPublish(ctx, cid, ev.PacketID)
}

func checkFlow(ctx context.Context, s *store.Store, cid string) error {
	ev := &pushstore.PublishEvent{ClientID: cid, Topic: "pushctl/check", Payload: []byte("check"), QoS: pushstore.QoS2, PacketID: 2}
	if err := s.SendPublish(ctx, ev); err != nil {
		return err
	}
	ok, err := s.ReceivePubrec(ctx, ev.Key())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("publish %s is not in flight", ev.Key())
	}
	return s.ReceivePubcomp(ctx, ev.Key())
}

func checkRetained(ctx context.Context, s *store.Store, cid string) error {
	topic := "pushctl/check/" + cid
	if err := s.StoreRetained(ctx, topic, []byte("check"), pushstore.QoS1); err != nil {
		return err
	}
	msgs, err := s.SearchRetained(ctx, topic)
	if err != nil {
		return err
	}
	if len(msgs) != 1 {
		return fmt.Errorf("retained message of %s not found", topic)
	}
	return s.CleanRetained(ctx, topic)
}
