package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkocikowski/libkafka07/client/consumer"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newConsumeCmd(opts *options) *cobra.Command {
	var (
		offset   int64
		earliest bool
		count    int
		polling  time.Duration
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Print messages from a topic partition",
		Long: `Polls a topic partition and prints each message payload on its own line.
Starts at the latest offset unless --offset or --earliest is given. Runs until
interrupted or until --count messages were printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("offset") {
				cfg.Offset = &offset
			}
			if cmd.Flags().Changed("polling") {
				cfg.Polling = polling
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			c := consumer.New(cfg)
			c.Dialer = dial
			defer c.Close()
			if earliest {
				err := withRetry(ctx, opts, c.Reconnect, func() error {
					o, err := c.FetchEarliestOffset()
					if err == nil {
						c.SetOffset(o)
					}
					return err
				})
				if err != nil {
					return err
				}
			}
			st := newStats()
			out := cmd.OutOrStdout()
			last := time.Now()
			err = withRetry(ctx, opts, c.Reconnect, func() error {
				return c.Loop(ctx, func(m *message.Message) error {
					fmt.Fprintln(out, string(m.Payload))
					st.add(1, len(m.Payload))
					if interval > 0 && time.Since(last) > interval {
						log.Info(st)
						last = time.Now()
					}
					if count > 0 && st.messages() >= int64(count) {
						return consumer.ErrStop
					}
					return nil
				})
			})
			o, _ := c.Offset()
			log.WithFields(log.Fields{"topic": cfg.Topic, "partition": cfg.Partition, "offset": o}).Infof("consumed %s", st)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	flags := cmd.Flags()
	flags.Int64Var(&offset, "offset", 0, "Offset to start from (default: latest)")
	flags.BoolVar(&earliest, "earliest", false, "Start from the earliest offset")
	flags.IntVar(&count, "count", 0, "Stop after this many messages (0: no limit)")
	flags.DurationVar(&polling, "polling", 0, "Sleep between fetches (default from config)")
	flags.DurationVar(&interval, "stats-interval", 10*time.Second, "Log throughput this often (0: only at exit)")
	return cmd
}
