// Package bus relays fan-out events between gateway nodes over NATS so a
// message published on one node reaches connections held by its peers.
package bus

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"ChatSync/logger"
	"ChatSync/service/chat"
)

const subjectEvents = "chat.events"

type Config struct {
	URL           string
	Name          string // connection name, defaults to node ID
	MaxReconnects int
	ReconnectWait time.Duration
}

// envelope wraps an event with its origin node so subscribers can skip
// their own publications.
type envelope struct {
	Node  string      `json:"node"`
	Event *chat.Event `json:"event"`
}

// Bus implements chat.Relay on the publish side and feeds the local
// engine's Deliver on the subscribe side. Deliver, not Publish: a relayed
// event must never be relayed again.
type Bus struct {
	nc     *nats.Conn
	nodeID string
	sub    *nats.Subscription
}

func Connect(conf Config, nodeID string) (*Bus, error) {
	if conf.URL == "" {
		conf.URL = nats.DefaultURL
	}
	if conf.Name == "" {
		conf.Name = nodeID
	}
	if conf.MaxReconnects == 0 {
		conf.MaxReconnects = -1
	}
	if conf.ReconnectWait <= 0 {
		conf.ReconnectWait = 2 * time.Second
	}

	nc, err := nats.Connect(conf.URL,
		nats.Name(conf.Name),
		nats.MaxReconnects(conf.MaxReconnects),
		nats.ReconnectWait(conf.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnf("[bus] disconnected err=%v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[bus] reconnected url=%s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "nats connect %s", conf.URL)
	}
	logger.Infof("[bus] connected url=%s node=%s", nc.ConnectedUrl(), nodeID)
	return &Bus{nc: nc, nodeID: nodeID}, nil
}

// Relay implements chat.Relay.
func (b *Bus) Relay(ev *chat.Event) error {
	data, err := json.Marshal(envelope{Node: b.nodeID, Event: ev})
	if err != nil {
		return errors.Wrap(err, "marshal relay envelope")
	}
	return b.nc.Publish(subjectEvents, data)
}

// Start subscribes to the shared event subject and feeds every peer
// event into deliver.
func (b *Bus) Start(deliver func(ev *chat.Event)) error {
	sub, err := b.nc.Subscribe(subjectEvents, func(msg *nats.Msg) {
		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			logger.Warnf("[bus] bad envelope: %v", err)
			return
		}
		if env.Node == b.nodeID || env.Event == nil {
			return
		}
		deliver(env.Event)
	})
	if err != nil {
		return errors.Wrap(err, "subscribe "+subjectEvents)
	}
	b.sub = sub
	return nil
}

func (b *Bus) Close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	if b.nc != nil {
		_ = b.nc.Drain()
	}
}
