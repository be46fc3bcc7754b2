// Package bus is the messaging side of the toolkit: a session on the message
// bus that carries SEMP requests, topic publish/subscribe and queue
// (persistent) messaging.
//
// The bus is NATS. Topics map to subjects unchanged, so SEMP show requests
// go to "#SEMP/<router>/SHOW" and are answered by whichever responder serves
// that subject. Queues are existing JetStream streams bound to the subject
// "#P2P/QUE/<queue>"; this package never provisions streams.
//
// # SEMP over the bus
//
//	session, err := bus.Connect(bus.DefaultConfig("localhost:4222"))
//	if err != nil { ... }
//	defer session.Close()
//
//	retriever := pagination.NewRetriever(session, pagination.DefaultConfig(session.SEMPTopic()))
//	pages, err := retriever.Collect(ctx, semp.ShowQueues("", "*", 5))
//
// # Subscribing
//
//	latch := bus.NewLatch(1)
//	sub, err := session.Subscribe("tutorial/topic", bus.HandlerFuncs{
//	    Message: func(m *bus.Message) { fmt.Println(m.Dump()); latch.CountDown() },
//	    Error:   func(err error) { log.Print(err); latch.CountDown() },
//	})
//	...
//	err = latch.Wait(ctx)
//
// # Metrics
//
//   - semp_bus_requests_total{outcome} - SEMP requests over the bus
//   - semp_bus_messages_received_total{kind} - Messages delivered to consumers
//   - semp_bus_messages_published_total{kind} - Messages published
//   - semp_bus_session_events_total{event} - Session lifecycle events
package bus
