package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/greenfelt/holdem/domain"
	"github.com/greenfelt/holdem/server/connection"
	"github.com/greenfelt/holdem/server/events"
)

// Client commands. Every websocket message is a JSON object with a
// "name" field selecting the command.

type EnterLobby struct {
	UserID   string `json:"userID"`
	UserName string `json:"userName"`
}

func (EnterLobby) CommandName() string { return "ENTER_LOBBY" }

type LeaveLobby struct{}

func (LeaveLobby) CommandName() string { return "LEAVE_LOBBY" }

type ListTables struct {
	Tier string `json:"tier,omitempty"`
}

func (ListTables) CommandName() string { return "LIST_TABLES" }

type JoinTable struct {
	TableID  string `json:"tableID"`
	Passcode string `json:"passcode,omitempty"`
}

func (JoinTable) CommandName() string { return "JOIN_TABLE" }

type LeaveTable struct {
	TableID string `json:"tableID"`
}

func (LeaveTable) CommandName() string { return "LEAVE_TABLE" }

// CreatePrivateTable carries the table name as "tableName" so it
// cannot shadow the envelope's "name" discriminator.
type CreatePrivateTable struct {
	TableName string `json:"tableName"`
	Tier      string `json:"tier"`
	Passcode  string `json:"passcode"`
}

func (CreatePrivateTable) CommandName() string { return "CREATE_PRIVATE_TABLE" }

type TakeAction struct {
	TableID string `json:"tableID"`
	Action  string `json:"action"`
	Amount  int64  `json:"amount,omitempty"`
}

func (TakeAction) CommandName() string { return "ACTION" }

type SendChat struct {
	TableID string `json:"tableID"`
	Text    string `json:"text"`
}

func (SendChat) CommandName() string { return "CHAT" }

// CommandRouter decodes client commands and applies them to the
// table registry.
type CommandRouter struct {
	registry *domain.Registry
	connMgr  *connection.Manager
	log      zerolog.Logger
}

func NewCommandRouter(registry *domain.Registry, connMgr *connection.Manager, log zerolog.Logger) *CommandRouter {
	return &CommandRouter{
		registry: registry,
		connMgr:  connMgr,
		log:      log,
	}
}

// HandleCommand processes one incoming message. Errors are reported
// back to the client as ERROR envelopes; only decode failures of the
// outer frame are returned to the caller.
func (r *CommandRouter) HandleCommand(client *connection.Client, message []byte) error {
	var baseCmd struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(message, &baseCmd); err != nil {
		return fmt.Errorf("malformed command frame: %w", err)
	}

	var err error
	switch baseCmd.Name {
	case EnterLobby{}.CommandName():
		var cmd EnterLobby
		if err = json.Unmarshal(message, &cmd); err == nil {
			err = r.handleEnterLobby(client, cmd)
		}

	case LeaveLobby{}.CommandName():
		err = r.handleLeaveLobby(client)

	case ListTables{}.CommandName():
		var cmd ListTables
		if err = json.Unmarshal(message, &cmd); err == nil {
			err = r.handleListTables(client, cmd)
		}

	case JoinTable{}.CommandName():
		var cmd JoinTable
		if err = json.Unmarshal(message, &cmd); err == nil {
			err = r.handleJoinTable(client, cmd)
		}

	case LeaveTable{}.CommandName():
		var cmd LeaveTable
		if err = json.Unmarshal(message, &cmd); err == nil {
			err = r.handleLeaveTable(client, cmd)
		}

	case CreatePrivateTable{}.CommandName():
		var cmd CreatePrivateTable
		if err = json.Unmarshal(message, &cmd); err == nil {
			err = r.handleCreatePrivateTable(client, cmd)
		}

	case TakeAction{}.CommandName():
		var cmd TakeAction
		if err = json.Unmarshal(message, &cmd); err == nil {
			err = r.handleAction(client, cmd)
		}

	case SendChat{}.CommandName():
		var cmd SendChat
		if err = json.Unmarshal(message, &cmd); err == nil {
			err = r.handleChat(client, cmd)
		}

	default:
		err = fmt.Errorf("unknown command %q", baseCmd.Name)
	}

	if err != nil {
		r.log.Debug().Err(err).Str("command", baseCmd.Name).Str("client", client.ID).Msg("command rejected")
		r.sendError(client, baseCmd.Name, err)
	}
	return nil
}

// HandleDisconnect treats a dropped connection as the player leaving
// every table they were seated at.
func (r *CommandRouter) HandleDisconnect(client *connection.Client) {
	if client.UserID == "" {
		return
	}
	for _, tableID := range client.Tables() {
		if err := r.registry.Leave(tableID, client.UserID); err != nil && !errors.Is(err, domain.ErrNotSeated) {
			r.log.Error().Err(err).Str("table", tableID).Str("user", client.UserID).
				Msg("failed to remove disconnected player")
		}
	}
}

func (r *CommandRouter) handleEnterLobby(client *connection.Client, cmd EnterLobby) error {
	if cmd.UserID == "" {
		return errors.New("userID is required")
	}
	r.connMgr.BindUser(client.ID, cmd.UserID, cmd.UserName)
	client.UserID = cmd.UserID
	client.Name = cmd.UserName
	return r.sendTableList(client, "")
}

// handleLeaveLobby stands the player up from every table and drops
// their identity from the connection.
func (r *CommandRouter) handleLeaveLobby(client *connection.Client) error {
	if client.UserID == "" {
		return nil
	}
	for _, tableID := range client.Tables() {
		if err := r.registry.Leave(tableID, client.UserID); err != nil && !errors.Is(err, domain.ErrNotSeated) {
			return err
		}
		r.connMgr.RemoveTableFromClient(client.ID, tableID)
	}
	r.connMgr.UnbindUser(client.ID)
	client.UserID = ""
	client.Name = ""
	return nil
}

func (r *CommandRouter) handleListTables(client *connection.Client, cmd ListTables) error {
	return r.sendTableList(client, cmd.Tier)
}

func (r *CommandRouter) handleJoinTable(client *connection.Client, cmd JoinTable) error {
	if client.UserID == "" {
		return errors.New("enter the lobby first")
	}
	state, err := r.registry.Join(cmd.TableID, cmd.Passcode, client.UserID, client.Name)
	if err != nil {
		return err
	}
	r.connMgr.AddTableToClient(client.ID, cmd.TableID)
	return r.reply(client, "TABLE_STATE", state.RedactFor(client.UserID))
}

func (r *CommandRouter) handleLeaveTable(client *connection.Client, cmd LeaveTable) error {
	if client.UserID == "" {
		return errors.New("enter the lobby first")
	}
	if err := r.registry.Leave(cmd.TableID, client.UserID); err != nil {
		return err
	}
	r.connMgr.RemoveTableFromClient(client.ID, cmd.TableID)
	return nil
}

func (r *CommandRouter) handleCreatePrivateTable(client *connection.Client, cmd CreatePrivateTable) error {
	if client.UserID == "" {
		return errors.New("enter the lobby first")
	}
	if cmd.TableName == "" {
		return errors.New("table name is required")
	}
	if cmd.Passcode == "" {
		return errors.New("passcode is required")
	}
	stakes, ok := domain.StakesForTier(cmd.Tier)
	if !ok {
		return fmt.Errorf("unknown stake tier %q", cmd.Tier)
	}

	table, state, err := r.registry.CreatePrivateTableFor(cmd.TableName, cmd.Passcode, stakes, client.UserID, client.Name)
	if err != nil {
		return err
	}
	r.connMgr.AddTableToClient(client.ID, table.ID)
	return r.reply(client, "TABLE_STATE", state.RedactFor(client.UserID))
}

func (r *CommandRouter) handleAction(client *connection.Client, cmd TakeAction) error {
	if client.UserID == "" {
		return errors.New("enter the lobby first")
	}
	table, err := r.registry.Get(cmd.TableID)
	if err != nil {
		return err
	}
	return table.HandleAction(client.UserID, domain.ActionType(cmd.Action), cmd.Amount)
}

func (r *CommandRouter) handleChat(client *connection.Client, cmd SendChat) error {
	if client.UserID == "" {
		return errors.New("enter the lobby first")
	}
	table, err := r.registry.Get(cmd.TableID)
	if err != nil {
		return err
	}
	return table.Chat(client.UserID, cmd.Text)
}

func (r *CommandRouter) sendTableList(client *connection.Client, tier string) error {
	return r.reply(client, "TABLE_LIST", r.registry.List(tier))
}

func (r *CommandRouter) reply(client *connection.Client, name string, payload any) error {
	data, err := events.Marshal(name, payload)
	if err != nil {
		return err
	}
	select {
	case client.Send <- data:
	default:
	}
	return nil
}

type errorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

func (r *CommandRouter) sendError(client *connection.Client, command string, cause error) {
	_ = r.reply(client, "ERROR", errorPayload{Command: command, Message: cause.Error()})
}
