package chat

import (
	"hash/fnv"
	"sync"

	"ChatSync/logger"
)

// Sender delivers one marshaled frame to one local connection. A failed
// or vanished target returns an error the engine logs and drops.
type Sender interface {
	Send(connID string, payload []byte) error
}

// Relay forwards events to peer gateway nodes (the NATS bus). Optional.
type Relay interface {
	Relay(ev *Event) error
}

type fanoutJob struct {
	conns   []string
	payload []byte
}

// Engine is the single fan-out entry point. Publish resolves the audience
// synchronously (so it sees publish-time membership) and hands delivery
// to a sharded worker pool: jobs for one conversation always land on the
// same shard, preserving per-conversation order. Delivery itself is
// fire-and-forget; durability lives in the preceding REST write.
type Engine struct {
	presence *Presence
	rooms    *RoomTable
	sender   Sender
	relay    Relay

	shards   []chan fanoutJob
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewEngine(presence *Presence, rooms *RoomTable, sender Sender, workers, queue int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 256
	}
	e := &Engine{
		presence: presence,
		rooms:    rooms,
		sender:   sender,
		shards:   make([]chan fanoutJob, workers),
		stopCh:   make(chan struct{}),
	}
	for i := range e.shards {
		ch := make(chan fanoutJob, queue)
		e.shards[i] = ch
		go e.worker(ch)
	}
	return e
}

// SetRelay attaches the inter-node bus; call before serving traffic.
func (e *Engine) SetRelay(r Relay) { e.relay = r }

func (e *Engine) Close() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Publish delivers locally and relays to peer nodes. It never returns an
// error: fan-out failures must not bubble into the REST caller whose
// write already committed.
func (e *Engine) Publish(ev *Event) {
	e.Deliver(ev)
	if e.relay != nil {
		if err := e.relay.Relay(ev); err != nil {
			logger.Warnf("[fanout] relay failed kind=%s err=%v", ev.Kind, err)
		}
	}
}

// Deliver fans out to local connections only. The bus calls this for
// events originating on peer nodes.
func (e *Engine) Deliver(ev *Event) {
	if ev == nil {
		return
	}
	conns := e.audience(ev)
	if len(conns) == 0 {
		return
	}
	payload := MarshalFrame(string(ev.Kind), ev.Data)
	if payload == nil {
		logger.Errorf("[fanout] unencodable payload kind=%s", ev.Kind)
		return
	}
	e.dispatch(ev, fanoutJob{conns: conns, payload: payload})
}

func (e *Engine) audience(ev *Event) []string {
	switch DeliveryOf(ev.Kind) {
	case DeliveryRoom:
		if ev.ConversationID == "" {
			logger.Warnf("[fanout] room event without conversation kind=%s", ev.Kind)
			return nil
		}
		members := e.rooms.MembersOf(RoomName(ev.ConversationID))
		if ev.ExcludeConn == "" {
			return members
		}
		out := members[:0]
		for _, c := range members {
			if c != ev.ExcludeConn {
				out = append(out, c)
			}
		}
		return out
	case DeliveryUser:
		// notification:new and conversation:* target each user's full
		// connection set; offline users simply resolve to none and the
		// durable row covers them.
		var out []string
		for _, u := range ev.Targets {
			out = append(out, e.presence.ConnectionsFor(u)...)
		}
		return out
	case DeliveryGlobal:
		return e.presence.ConnectionsExcept(ev.Origin)
	default:
		logger.Warnf("[fanout] unknown event kind=%s, dropped", ev.Kind)
		return nil
	}
}

// dispatch routes the job to a deterministic shard. Room events shard by
// conversation so same-conversation order is the publish order. The
// enqueue never blocks the publisher: a full shard drops the job and the
// affected clients recover through catch-up sync.
func (e *Engine) dispatch(ev *Event, job fanoutJob) {
	key := ev.ConversationID
	if key == "" {
		key = string(ev.Kind) + ev.Origin
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	ch := e.shards[int(h.Sum32())%len(e.shards)]
	select {
	case ch <- job:
	default:
		logger.Warnf("[fanout] shard queue full, dropping kind=%s conv=%s targets=%d",
			ev.Kind, ev.ConversationID, len(job.conns))
	}
}

func (e *Engine) worker(ch chan fanoutJob) {
	for {
		select {
		case job := <-ch:
			for _, connID := range job.conns {
				// per-target isolation: one dead socket must not stop
				// the rest of the fan-out
				if err := e.sender.Send(connID, job.payload); err != nil {
					logger.Debugf("[fanout] drop conn=%s err=%v", connID, err)
				}
			}
		case <-e.stopCh:
			return
		}
	}
}
