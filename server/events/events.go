package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/sanity-io/litter"

	"github.com/greenfelt/holdem/domain/events"
	"github.com/greenfelt/holdem/server/connection"
)

// EventEnvelope wraps an event with its name for client consumption.
type EventEnvelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher routes domain events to the connections that are allowed
// to see them. Hole cards only ever reach their owner: private deals
// go to one user, and full table snapshots are redacted per viewer
// before they leave the process.
type Dispatcher struct {
	connMgr *connection.Manager
	log     zerolog.Logger
}

func NewDispatcher(connMgr *connection.Manager, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{connMgr: connMgr, log: log}
}

// HandleEvent is registered on the table registry. It runs on the
// emitting table's goroutine, so it only marshals and hands off to
// per-connection send buffers.
func (d *Dispatcher) HandleEvent(event events.Event) {
	if d.log.GetLevel() <= zerolog.TraceLevel {
		d.log.Trace().Str("event", event.Name()).Msg(litter.Sdump(event))
	}

	switch e := event.(type) {
	case events.HoleCardsDealt:
		// Private: only the seat's own connection sees its cards.
		d.sendToUser(e.UserID, event)

	case events.TableStateChanged:
		d.broadcastState(e)

	case events.PlayerJoinedTable:
		d.sendToTable(e.TableID, event)
	case events.PlayerLeftTable:
		d.sendToTable(e.TableID, event)
	case events.HandStarted:
		d.sendToTable(e.TableID, event)
	case events.BlindPosted:
		d.sendToTable(e.TableID, event)
	case events.StreetDealt:
		d.sendToTable(e.TableID, event)
	case events.PlayerActed:
		d.sendToTable(e.TableID, event)
	case events.PlayerTurnStarted:
		d.sendToTable(e.TableID, event)
	case events.HandEnded:
		d.sendToTable(e.TableID, event)
	case events.ChatMessage:
		d.sendToTable(e.TableID, event)

	default:
		d.log.Warn().Str("event", event.Name()).Msg("no dispatch rule for event")
	}
}

// broadcastState sends a table snapshot to every viewer with their
// own hole cards intact and everyone else's stripped.
func (d *Dispatcher) broadcastState(e events.TableStateChanged) {
	for _, userID := range d.connMgr.UsersAtTable(e.TableID) {
		redacted := events.TableStateChanged{
			TableID: e.TableID,
			State:   e.State.RedactFor(userID),
		}
		data, err := Marshal(redacted.Name(), redacted)
		if err != nil {
			d.log.Error().Err(err).Msg("failed to marshal table state")
			return
		}
		d.connMgr.SendToUser(userID, data)
	}
}

func (d *Dispatcher) sendToUser(userID string, event events.Event) {
	data, err := Marshal(event.Name(), event)
	if err != nil {
		d.log.Error().Err(err).Str("event", event.Name()).Msg("failed to marshal event")
		return
	}
	d.connMgr.SendToUser(userID, data)
}

func (d *Dispatcher) sendToTable(tableID string, event events.Event) {
	data, err := Marshal(event.Name(), event)
	if err != nil {
		d.log.Error().Err(err).Str("event", event.Name()).Msg("failed to marshal event")
		return
	}
	d.connMgr.SendToTable(tableID, data)
}

// Marshal builds the wire form of an envelope.
func Marshal(name string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(EventEnvelope{Name: name, Payload: raw})
}
