// Package policy decides which principal may perform which action. Every gated
// operation in the portal asks CanPerform; no call site inspects roles directly.
package policy

import (
	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/models"
)

// Principal is the authenticated caller: an administrator or a client, never both.
type Principal struct {
	Kind      models.SessionKind
	SessionID uuid.UUID
	Email     string
	Role      models.Role
	ClientID  uuid.UUID
}

func (p Principal) IsAdmin() bool  { return p.Kind == models.SessionAdmin && p.Role.Valid() }
func (p Principal) IsClient() bool { return p.Kind == models.SessionClient && p.ClientID != uuid.Nil }

// Party is the side a principal writes as when sending messages or uploading.
func (p Principal) Party() models.Party {
	if p.IsClient() {
		return models.PartyClient
	}
	return models.PartyAdmin
}

type Action string

const (
	ViewClients        Action = "clients.view"
	CreateClient       Action = "clients.create"
	UpdateClient       Action = "clients.update"
	ToggleClient       Action = "clients.toggle"
	DeleteClient       Action = "clients.delete"
	ExportClients      Action = "clients.export"
	ReplaceCredential  Action = "credentials.replace"
	DownloadCredential Action = "credentials.download"
	ViewTasks          Action = "tasks.view"
	CreateTask         Action = "tasks.create"
	EditTask           Action = "tasks.edit"
	ChangeTaskStatus   Action = "tasks.status"
	DeleteTask         Action = "tasks.delete"
	ViewDocuments      Action = "documents.view"
	UploadDocument     Action = "documents.upload"
	DownloadDocument   Action = "documents.download"
	DeleteDocument     Action = "documents.delete"
	ViewMessages       Action = "messages.view"
	SendMessage        Action = "messages.send"
	ViewAdmins         Action = "admins.view"
	ManageAdmins       Action = "admins.manage"
)

// Resource describes what the action targets. ClientID is the owning client;
// UploadedBy only matters for documents.
type Resource struct {
	ClientID   uuid.UUID
	UploadedBy models.Party
}

// Client returns a resource owned by the given client.
func Client(id uuid.UUID) Resource { return Resource{ClientID: id} }

// minAdminLevel is the lowest tier allowed to perform each action.
var minAdminLevel = map[Action]int{
	ViewClients:        1,
	ExportClients:      1,
	DownloadCredential: 1,
	ViewTasks:          1,
	ChangeTaskStatus:   1,
	ViewDocuments:      1,
	DownloadDocument:   1,
	ViewMessages:       1,
	SendMessage:        1,
	ViewAdmins:         1,
	CreateClient:       2,
	UploadDocument:     2,
	UpdateClient:       3,
	ToggleClient:       3,
	DeleteClient:       3,
	ReplaceCredential:  3,
	CreateTask:         3,
	EditTask:           3,
	DeleteTask:         3,
	DeleteDocument:     3,
	ManageAdmins:       3,
}

// clientActions are allowed to a client on resources it owns.
var clientActions = map[Action]bool{
	ViewClients:        true,
	DownloadCredential: true,
	ViewTasks:          true,
	ChangeTaskStatus:   true,
	ViewDocuments:      true,
	UploadDocument:     true,
	DownloadDocument:   true,
	DeleteDocument:     true,
	ViewMessages:       true,
	SendMessage:        true,
}

// CanPerform reports whether p may perform a on r.
func CanPerform(p Principal, a Action, r Resource) bool {
	switch {
	case p.IsAdmin():
		level, ok := minAdminLevel[a]
		if !ok {
			return false
		}
		return p.Role.Level() >= level
	case p.IsClient():
		if !clientActions[a] || r.ClientID != p.ClientID {
			return false
		}
		if a == DeleteDocument {
			return r.UploadedBy == models.PartyClient
		}
		return true
	default:
		return false
	}
}
