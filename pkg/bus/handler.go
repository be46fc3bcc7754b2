package bus

// Handler receives messages delivered to an asynchronous subscription.
// Both methods run on the messaging client's delivery goroutine.
type Handler interface {
	OnMessage(msg *Message)
	OnError(err error)
}

// HandlerFuncs adapts plain functions to a Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Message func(msg *Message)
	Error   func(err error)
}

// OnMessage implements Handler.
func (h HandlerFuncs) OnMessage(msg *Message) {
	if h.Message != nil {
		h.Message(msg)
	}
}

// OnError implements Handler.
func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

// PublishHandler is told the outcome of every persistent send. id is the
// message ID returned by QueueProducer.Send.
type PublishHandler interface {
	OnAck(id string)
	OnPublishError(id string, err error)
}

// PublishHandlerFuncs adapts plain functions to a PublishHandler.
type PublishHandlerFuncs struct {
	Ack   func(id string)
	Error func(id string, err error)
}

// OnAck implements PublishHandler.
func (h PublishHandlerFuncs) OnAck(id string) {
	if h.Ack != nil {
		h.Ack(id)
	}
}

// OnPublishError implements PublishHandler.
func (h PublishHandlerFuncs) OnPublishError(id string, err error) {
	if h.Error != nil {
		h.Error(id, err)
	}
}
