package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var (
	produceSubject string
	produceCount   int
	produceURL     string
)

// produceCmd is a sample bus producer for manually smoke-testing a running
// gateway end to end: it connects directly to NATS (bypassing the gateway,
// the way an upstream service would) and publishes a handful of test
// messages a subscribed client can observe.
var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "Publish sample test messages to the bus for manual smoke-testing",
	RunE:  runProduce,
}

func init() {
	produceCmd.Flags().StringVar(&produceSubject, "subject", "t.v1.sample", "subject to publish on")
	produceCmd.Flags().IntVar(&produceCount, "count", 3, "number of sample messages to publish")
	produceCmd.Flags().StringVar(&produceURL, "nats-url", nats.DefaultURL, "NATS server URL")
}

type sampleMessage struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Sent  int64  `json:"sent_unix"`
}

func runProduce(cmd *cobra.Command, args []string) error {
	nc, err := nats.Connect(produceURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	for i := 0; i < produceCount; i++ {
		msg := sampleMessage{Index: i, Name: fmt.Sprintf("Test %d", i), Sent: time.Now().Unix()}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal sample message %d: %w", i, err)
		}
		if err := nc.Publish(produceSubject, data); err != nil {
			return fmt.Errorf("publish sample message %d: %w", i, err)
		}
		fmt.Printf("published %s -> %s\n", produceSubject, string(data))
	}
	return nc.Flush()
}
