package main

import (
	"bufio"
	"fmt"

	"github.com/mkocikowski/libkafka07/batch"
	"github.com/mkocikowski/libkafka07/client/producer"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newPublishCmd(opts *options) *cobra.Command {
	var messages []string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish messages to a topic partition",
		Long: `Publishes the --message values, or one message per line read from stdin,
as a single produce request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					messages = append(messages, scanner.Text())
				}
				if err := scanner.Err(); err != nil {
					return err
				}
			}
			p := producer.New(cfg)
			p.Dialer = dial
			defer p.Close()
			st := newStats()
			err = withRetry(cmd.Context(), opts, p.Reconnect, func() error {
				n, err := p.Batch(func(b *batch.Builder) { b.AddStrings(messages...) })
				if err == nil {
					st.add(len(messages), n)
				}
				return err
			})
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"topic": cfg.Topic, "partition": cfg.Partition}).Infof("published %s", st)
			fmt.Fprintln(cmd.OutOrStdout(), st.total())
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&messages, "message", "m", nil, "Message to publish (repeatable)")
	return cmd
}
