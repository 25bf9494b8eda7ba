package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/team-map-service/internal/adapter/kafka"
)

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish every team member in the dataset to Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.KafkaEnabled() {
				return errors.New("KAFKA_BROKERS is not set")
			}
			ds, err := a.store.LoadDataset()
			if err != nil {
				return err
			}

			writer := kafkaadapter.NewWriter(a.cfg, a.logger)
			n, err := writer.Publish(cmd.Context(), ds)
			if cerr := writer.Close(); cerr != nil {
				a.logger.Error("kafka writer close error", "error", cerr)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d members to %s\n", n, a.cfg.KafkaTopic)
			return nil
		},
	}
}
