package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/semp-client/pkg/client"
	"github.com/Sternrassler/semp-client/pkg/pagination"
	"github.com/Sternrassler/semp-client/pkg/perf"
	"github.com/Sternrassler/semp-client/pkg/semp"
	"github.com/spf13/cobra"
)

func newPagingCmd(a *app) *cobra.Command {
	var transport, queueName string
	var numElements int

	cmd := &cobra.Command{
		Use:   "paging",
		Short: "List queues page by page, following more-cookies",
		Long: `List queues page by page, following more-cookies.

With --retries, a failed page request is repeated on its own; pages
already printed are not fetched again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if transport == transportBus {
				fmt.Fprintln(out, "[Ensure selected message-vpn is configured as the appliance's management message-vpn.]")
			}
			t, destination, err := a.sempEndpoint(cmd.Context(), transport, out)
			if err != nil {
				return err
			}

			cfg := pagination.DefaultConfig(destination)
			cfg.Timeout = a.cfg.Timeout
			if policy := a.cfg.Retry(); policy.MaxAttempts > 1 {
				t = client.RetryTransport(t, policy, a.cfg.Timeout)
				cfg.Timeout = policy.Budget(a.cfg.Timeout)
			}
			cfg.OnRequest = func(_ int, payload []byte) {
				fmt.Fprintf(out, "REQUEST: %s(%d bytes)\n", semp.TrimForDisplay(string(payload), 75), len(payload))
			}
			retriever := pagination.NewRetriever(t, cfg)
			template := semp.ShowQueues(a.cfg.SEMPVersion, queueName, numElements)

			for reply, err := range retriever.All(cmd.Context(), template) {
				if err != nil {
					return err
				}
				printPage(cmd, reply)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportBus, "SEMP transport (bus or http)")
	cmd.Flags().StringVar(&queueName, "queue-name", "*", "Queue name pattern")
	cmd.Flags().IntVar(&numElements, "num-elements", 5, "Queues per reply page")
	return cmd
}

func printPage(cmd *cobra.Command, reply *semp.Reply) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "REPLY: %s(%d bytes)\n", semp.TrimForDisplay(reply.String(), 175), reply.Len())
	if reply.IsEmpty() {
		return
	}

	if code, err := reply.ResultCode(); err == nil && code != "" {
		fmt.Fprintf(out, "   Result: %s\n", code)
	}
	names, err := reply.QueueNames()
	if err != nil {
		fmt.Fprintf(out, "   Unable to list queues: %v\n", err)
	}
	for _, name := range names {
		fmt.Fprintf(out, "   Queue: %s\n", name)
	}
	if _, ok, _ := reply.MoreCookie(); ok {
		fmt.Fprintln(out, "Found more-cookie...")
	}
}

func newGetCmd(a *app) *cobra.Command {
	var transport, clientName string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Send a single \"show client\" SEMP request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			t, destination, err := a.sempEndpoint(cmd.Context(), transport, out)
			if err != nil {
				return err
			}

			request := semp.ShowClients(a.cfg.SEMPVersion, clientName)
			fmt.Fprintf(out, "REQUEST: %s\n", request)
			fmt.Fprintf(out, "REQUEST ADDRESS: %s\n", destination)

			return a.retry(cmd.Context(), func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
				defer cancel()

				reply, err := t.Request(ctx, destination, request)
				if err != nil {
					return semp.Wrap(err, "show client")
				}
				fmt.Fprintf(out, "REPLY: %s\n", reply)
				if reply.PermissionError() {
					fmt.Fprintln(out, "Permission Error: Make sure SEMP over message bus SHOW commands are enabled for this VPN")
					return &semp.Error{Kind: semp.KindProtocol, Code: "permission-error", Message: "show client refused"}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportBus, "SEMP transport (bus or http)")
	cmd.Flags().StringVar(&clientName, "client-name", "*", "Client name pattern")
	return cmd
}

func newHTTPGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "http-get",
		Short: "Send a \"show stats client\" request over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			c, err := a.httpClient()
			if err != nil {
				return err
			}

			request := semp.ShowClientStats(a.cfg.SEMPVersion)
			fmt.Fprintf(out, "Sending SEMP Request to %s\n\n%s\n", c.URL(""), request)

			return a.retry(cmd.Context(), func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
				defer cancel()

				reply, err := c.Do(ctx, request)
				if err != nil {
					var se *semp.Error
					if errors.As(err, &se) && se.StatusCode != 0 {
						fmt.Fprintf(out, "Error: %s\n", se.Message)
					}
					return err
				}
				fmt.Fprintf(out, "Received SEMP Response:\n\n%s\n", reply)
				return nil
			})
		},
	}
}

func newPerfCmd(a *app) *cobra.Command {
	var transport string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "perf",
		Short: "Measure serial SEMP request throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			t, destination, err := a.sempEndpoint(cmd.Context(), transport, out)
			if err != nil {
				return err
			}

			cfg := perf.DefaultConfig(a.cfg.SEMPVersion)
			cfg.Destination = destination
			cfg.Duration = duration
			cfg.Timeout = a.cfg.Timeout
			cfg.Progress = semp.NewDotPrinter(out, semp.DefaultDotsPerLine)
			cfg.OnWarmup = func(reply *semp.Reply) {
				fmt.Fprintf(out, "... Reply: %s\n", semp.TrimForDisplay(reply.String(), 175))
				fmt.Fprintf(out, "%s test...\n", duration)
			}

			fmt.Fprintln(out, "Testing... ")
			result, err := perf.Run(cmd.Context(), t, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s\n", result)
			return nil
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportHTTP, "SEMP transport (bus or http)")
	cmd.Flags().DurationVar(&duration, "duration", perf.DefaultDuration, "Length of the timed loop")
	return cmd
}
