package chat

import (
	"ChatSync/logger"
)

// Handler processes one inbound client event.
type Handler interface {
	Event() string
	Handle(c *Client, f *Frame) error
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) Get(event string) Handler {
	h, ok := d.handlers[event]
	if !ok {
		logger.Debugf("[dispatcher] no handler for event=%s", event)
		return nil
	}
	return h
}
