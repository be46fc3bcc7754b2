// Package pagination retrieves paged SEMP replies.
//
// A paged SEMP command answers with at most num-elements results and a
// <more-cookie> element describing how to ask for the rest. The Retriever
// drives that exchange one request at a time: send, validate the reply,
// extract the cookie, derive the next request, repeat until a reply comes
// back without a cookie.
//
// Example usage:
//
//	retriever := pagination.NewRetriever(transport, pagination.Config{
//		Destination: semp.Topic(routerName),
//		Timeout:     5 * time.Second,
//	})
//	for reply, err := range retriever.All(ctx, semp.ShowQueues(version, "*", 5)) {
//		if err != nil {
//			return err
//		}
//		names, _ := reply.QueueNames()
//		...
//	}
//
// The retriever:
//   - Keeps exactly one request outstanding
//   - Bounds every request by the configured timeout
//   - Stops at the first timeout, transport, status or parse error
//   - Never retries; retry policy belongs to the caller
package pagination
