package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Sternrassler/semp-client/pkg/bus"
	"github.com/spf13/cobra"
)

func helloText() string {
	return "Hello world! " + time.Now().Format(time.DateTime)
}

// waitContext bounds ctx by wait; zero waits until ctx ends.
func waitContext(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

func newPubCmd(a *app) *cobra.Command {
	var topic, message string

	cmd := &cobra.Command{
		Use:   "pub",
		Short: "Publish a text message to a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			session, err := a.session(out)
			if err != nil {
				return err
			}

			if message == "" {
				message = helloText()
			}
			fmt.Fprintf(out, "About to send message '%s' to topic '%s'...\n", message, topic)
			if err := session.Publish(topic, []byte(message)); err != nil {
				return err
			}
			if err := session.Flush(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, "Message sent. Exiting.")
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "tutorial/topic", "Topic to publish to")
	cmd.Flags().StringVar(&message, "message", "", "Message text (default: Hello world! with a timestamp)")
	return cmd
}

func newSubCmd(a *app) *cobra.Command {
	var topic string
	var count int
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "sub",
		Short: "Subscribe to a topic and dump received messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			session, err := a.session(out)
			if err != nil {
				return err
			}

			latch := bus.NewLatch(count)
			var consumer callbackState
			sub, err := session.Subscribe(topic, bus.HandlerFuncs{
				Message: func(m *bus.Message) {
					consumer.print(out, "TextMessage received: '%s'\nMessage Dump:\n%s\n", m.Text(), m.Dump())
					latch.CountDown()
				},
				Error: func(err error) {
					consumer.fail(out, "Consumer received exception: ", err)
					for latch.Count() > 0 {
						latch.CountDown()
					}
				},
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			consumer.print(out, "Connected. Awaiting message on '%s'...\n", topic)
			ctx, cancel := waitContext(cmd.Context(), wait)
			defer cancel()
			if err := latch.Wait(ctx); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					consumer.print(out, "No message received.\n")
					return nil
				}
				return err
			}
			consumer.print(out, "Exiting.\n")
			return consumer.err()
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "tutorial/topic", "Topic to subscribe to")
	cmd.Flags().IntVar(&count, "count", 1, "Number of messages to receive")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Give up after this long (0 waits forever)")
	return cmd
}

func newBlockingSubCmd(a *app) *cobra.Command {
	var topic string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "blocking-sub",
		Short: "Receive one message from a topic with a blocking consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			session, err := a.session(out)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Setting topic subscription '%s'...\n", topic)
			consumer, err := session.SubscribeSync(topic)
			if err != nil {
				return err
			}
			defer consumer.Close()

			fmt.Fprintf(out, "About to attempt to receive message (timeout %s).\n", wait)
			ctx, cancel := waitContext(cmd.Context(), wait)
			defer cancel()

			msg, err := consumer.Receive(ctx)
			if errors.Is(err, bus.ErrNoMessage) {
				fmt.Fprintln(out, "No message received.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Received message:\n%s\n", msg.Dump())
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "tutorial/topic", "Topic to subscribe to")
	cmd.Flags().DurationVar(&wait, "wait", 60*time.Second, "Receive timeout")
	return cmd
}

func newQueuePubCmd(a *app) *cobra.Command {
	var queue, message string

	cmd := &cobra.Command{
		Use:   "queue-pub",
		Short: "Send a persistent message to an existing queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if queue == "" {
				return fmt.Errorf("--queue is required")
			}
			session, err := a.session(out)
			if err != nil {
				return err
			}

			latch := bus.NewLatch(1)
			var producerState callbackState
			producer, err := session.NewQueueProducer(bus.PublishHandlerFuncs{
				Ack: func(id string) {
					producerState.print(out, "Producer received response for msg ID #%s\n", id)
					latch.CountDown()
				},
				Error: func(id string, err error) {
					producerState.fail(out, "Producer received error for msg ID "+id+" - ", err)
					latch.CountDown()
				},
			})
			if err != nil {
				return err
			}
			a.onClose(producer.Close)

			if message == "" {
				message = helloText()
			}
			fmt.Fprintf(out, "Connected. About to send message to queue '%s'...\n", queue)
			if _, err := producer.Send(queue, []byte(message)); err != nil {
				return err
			}

			ctx, cancel := waitContext(cmd.Context(), a.cfg.Timeout)
			defer cancel()
			if err := latch.Wait(ctx); err != nil {
				return fmt.Errorf("waiting for acknowledgement: %w", err)
			}
			if err := producerState.err(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Message sent. Exiting.")
			return nil
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "", "Queue name")
	cmd.Flags().StringVar(&message, "message", "", "Message text (default: Hello world! with a timestamp)")
	return cmd
}

func newQueueSubCmd(a *app) *cobra.Command {
	var queue, durable string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "queue-sub",
		Short: "Receive and acknowledge one message from an existing queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if queue == "" {
				return fmt.Errorf("--queue is required")
			}
			session, err := a.session(out)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Attempting to bind to the queue '%s' on the appliance.\n", queue)
			flow, err := session.BindQueue(queue, durable)
			if err != nil {
				return err
			}
			defer flow.Close()

			fmt.Fprintf(out, "Connected. Awaiting message (for %s)...\n", wait)
			ctx, cancel := waitContext(cmd.Context(), wait)
			defer cancel()

			msg, err := flow.Receive(ctx)
			if errors.Is(err, bus.ErrNoMessage) {
				fmt.Fprintln(out, "No message received... timed out.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Message received!\n%s\n", msg.Dump())
			if err := msg.Ack(); err != nil {
				return fmt.Errorf("acknowledge message: %w", err)
			}
			fmt.Fprintln(out, "Exiting.")
			return nil
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "", "Queue name")
	cmd.Flags().StringVar(&durable, "durable", "semp-client", "Durable consumer name")
	cmd.Flags().DurationVar(&wait, "wait", 10*time.Minute, "Receive timeout")
	return cmd
}

// callbackState serializes output and the first reported error between
// handler callbacks and the command.
type callbackState struct {
	mu    sync.Mutex
	first error
}

func (c *callbackState) print(out io.Writer, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(out, format, args...)
}

func (c *callbackState) fail(out io.Writer, prefix string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(out, "%s%v\n", prefix, err)
	if c.first == nil {
		c.first = err
	}
}

func (c *callbackState) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.first
}
