// Package server routes chat traffic between sessions: broadcasts,
// direct messages, system notices, and presence updates.
package server

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/cyberchat/internal/protocol"
)

// Router performs stateless message routing over registry snapshots. All
// delivery happens outside the registry lock; a failure to reach one peer
// never suppresses delivery to the rest.
type Router struct {
	registry *Registry
	stats    *Stats
	events   *EventHub
	log      logrus.FieldLogger
}

// NewRouter creates a router bound to a registry, the aggregate stats,
// and the admin event feed.
func NewRouter(registry *Registry, stats *Stats, events *EventHub, log logrus.FieldLogger) *Router {
	return &Router{
		registry: registry,
		stats:    stats,
		events:   events,
		log:      log,
	}
}

// Broadcast delivers plain chat text from sender to every session. The
// sender receives a SENT echo confirmation instead of a self-addressed
// MSG.
func (rt *Router) Broadcast(sender *Session, text string) {
	rt.stats.AddMessage()
	sender.incrMessagesSent()

	echo := protocol.Frame{Type: protocol.TypeSent, Content: fmt.Sprintf("[You]: %s", text)}
	message := protocol.Frame{Type: protocol.TypeMsg, Content: fmt.Sprintf("[%s]: %s", sender.Username, text)}

	for _, session := range rt.registry.Snapshot() {
		frame := message
		if session == sender {
			frame = echo
		}
		if !session.Send(frame) {
			rt.log.WithField("user", session.Username).Debug("dropping broadcast frame")
		}
	}

	rt.events.Publish(EventChat, sender.Username, text)
}

// Direct delivers a private message from sender to the named target. A
// missing target is reported back to the sender and nothing else is sent.
func (rt *Router) Direct(sender *Session, target, text string) {
	recipient, exists := rt.registry.Get(target)
	if !exists {
		sender.Send(protocol.Frame{
			Type:    protocol.TypeError,
			Content: fmt.Sprintf("User '%s' not found", target),
		})
		return
	}

	rt.stats.AddMessage()
	sender.incrMessagesSent()

	recipient.Send(protocol.Frame{
		Type:    protocol.TypeMsg,
		Content: fmt.Sprintf("[Private from %s]: %s", sender.Username, text),
	})
	sender.Send(protocol.Frame{
		Type:    protocol.TypeSent,
		Content: fmt.Sprintf("[Private to %s]: %s", target, text),
	})

	rt.log.WithFields(logrus.Fields{"from": sender.Username, "to": target}).Debug("private message routed")
	rt.events.Publish(EventPrivate, sender.Username, fmt.Sprintf("→ %s", target))
}

// System broadcasts a SYSTEM notice to every session except the excluded
// username (empty string excludes nobody).
func (rt *Router) System(message, exclude string) {
	frame := protocol.Frame{Type: protocol.TypeSystem, Content: message}

	for _, session := range rt.registry.Snapshot() {
		if session.Username == exclude {
			continue
		}
		session.Send(frame)
	}
}

// PresenceLine formats the full presence snapshot, e.g.
// "Online: alice(away), bob(online)". Usernames are sorted so the line is
// stable for clients and tests; the registry itself contracts no order.
func (rt *Router) PresenceLine() string {
	list := rt.registry.List()
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })

	entries := make([]string, 0, len(list))
	for _, p := range list {
		entries = append(entries, fmt.Sprintf("%s(%s)", p.Username, p.Status))
	}
	return "Online: " + strings.Join(entries, ", ")
}

// PresenceBroadcast sends the full presence snapshot to every session.
// Clients replace their entire presence view on each USERS frame.
func (rt *Router) PresenceBroadcast() {
	frame := protocol.Frame{Type: protocol.TypeUsers, Content: rt.PresenceLine()}
	for _, session := range rt.registry.Snapshot() {
		session.Send(frame)
	}
}

// PresenceTo replies with the presence snapshot to a single requester.
func (rt *Router) PresenceTo(session *Session) {
	session.Send(protocol.Frame{Type: protocol.TypeUsers, Content: rt.PresenceLine()})
}

// ChangeStatus validates and applies a presence change. Invalid values
// are a silent no-op. On success the registry entry is mutated first,
// then the acknowledgement and broadcasts follow, so a LIST issued right
// after the OK observes the new status.
func (rt *Router) ChangeStatus(session *Session, value string) {
	if !ValidStatus(value) {
		rt.log.WithFields(logrus.Fields{"user": session.Username, "status": value}).
			Debug("ignoring invalid status value")
		return
	}

	status := Status(value)
	if err := rt.registry.SetStatus(session.Username, status); err != nil {
		return
	}

	session.Send(protocol.Frame{
		Type:    protocol.TypeOK,
		Content: fmt.Sprintf("Status changed to %s", status),
	})
	rt.System(fmt.Sprintf("'%s' is now %s", session.Username, status), "")
	rt.PresenceBroadcast()

	rt.events.Publish(EventStatus, session.Username, string(status))
}
