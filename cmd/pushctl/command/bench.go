package command

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

// BenchOptions represents the bench command options.
type BenchOptions struct {
	Clients int // number of concurrent clients
	Number  int // number of messages per client
	Size    int // payload bytes
	QoS     uint8
}

// NewBenchCmd creates the bench command. Every client queues its messages, then drives each of
// them through the outbound exchange of the given QoS, and finally destroys its session.
func NewBenchCmd() *cobra.Command {
	var opts BenchOptions
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure the throughput of the configured persistence",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.QoS == 0 || opts.QoS > 2 {
				return packets.ErrInvalQos
			}
			if opts.Number < 1 || opts.Number > int(packets.MaxPacketID) {
				return fmt.Errorf("number must be in [1,%d]", packets.MaxPacketID)
			}
			return runBench(context.Background(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.Clients, "clients", "n", 10, "number of clients")
	cmd.Flags().IntVarP(&opts.Number, "number", "m", 1000, "number of messages per client")
	cmd.Flags().IntVarP(&opts.Size, "size", "s", 256, "payload size (bytes)")
	cmd.Flags().Uint8VarP(&opts.QoS, "qos", "q", 1, "qos of the messages, 1 or 2")
	return cmd
}

func runBench(ctx context.Context, w io.Writer, opts BenchOptions) error {
	s, log, err := openStore(ctx, w)
	if err != nil {
		return err
	}
	defer s.Close()

	payload := make([]byte, opts.Size)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errCnt int
	)
	fail := func(err error) {
		mu.Lock()
		errCnt++
		mu.Unlock()
		log.Error("bench error", zap.Error(err))
	}
	start := time.Now()
	for i := 0; i < opts.Clients; i++ {
		wg.Add(1)
		go func(cid string) {
			defer wg.Done()
			defer func() {
				if err := s.DestroySession(ctx, cid); err != nil {
					fail(err)
				}
			}()
			for pid := 1; pid <= opts.Number; pid++ {
				ev := &pushstore.PublishEvent{
					ClientID: cid,
					Topic:    "pushctl/bench",
					Payload:  payload,
					QoS:      opts.QoS,
					PacketID: packets.PacketID(pid),
				}
				if err := s.StoreMessageToSessionForPublish(ctx, ev); err != nil {
					fail(err)
				}
			}
			evs, err := s.ListMessagesInSession(ctx, cid)
			if err != nil {
				fail(err)
				return
			}
			for _, ev := range evs {
				if err := deliver(ctx, s, ev); err != nil {
					fail(err)
				}
			}
		}("pushctl-bench-" + uuid.NewString())
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := opts.Clients * opts.Number
	bold.Fprintln(w, "bench result")
	fmt.Fprintf(w, "messages: %d, errors: %d, elapsed: %s\n", total, errCnt, elapsed)
	fmt.Fprintf(w, "throughput: %.2f msg/s\n", float64(total)/elapsed.Seconds())
	return nil
}
