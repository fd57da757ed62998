package models

// Role is an administrator privilege tier. Higher levels include lower ones.
type Role string

const (
	RoleLevel1 Role = "LEVEL_1"
	RoleLevel2 Role = "LEVEL_2"
	RoleLevel3 Role = "LEVEL_3"
)

var validRoles = map[Role]bool{
	RoleLevel1: true,
	RoleLevel2: true,
	RoleLevel3: true,
}

func (r Role) Valid() bool { return validRoles[r] }

// Level returns the numeric tier, 0 for unknown roles.
func (r Role) Level() int {
	switch r {
	case RoleLevel1:
		return 1
	case RoleLevel2:
		return 2
	case RoleLevel3:
		return 3
	default:
		return 0
	}
}

// SatStatus is the client's standing with the tax authority.
type SatStatus string

const (
	SatPendiente   SatStatus = "PENDIENTE"
	SatEnRevision  SatStatus = "EN_REVISION"
	SatAlCorriente SatStatus = "AL_CORRIENTE"
	SatConAdeudos  SatStatus = "CON_ADEUDOS"
)

var validSatStatuses = map[SatStatus]bool{
	SatPendiente:   true,
	SatEnRevision:  true,
	SatAlCorriente: true,
	SatConAdeudos:  true,
}

func (s SatStatus) Valid() bool { return validSatStatuses[s] }

// Label is the human-readable form shown to clients.
func (s SatStatus) Label() string {
	switch s {
	case SatAlCorriente:
		return "Al corriente"
	case SatConAdeudos:
		return "Con adeudos"
	case SatEnRevision:
		return "En revisión"
	case SatPendiente:
		return "Pendiente"
	default:
		return string(s)
	}
}

type TaskStatus string

const (
	TaskPendiente  TaskStatus = "PENDIENTE"
	TaskEnProceso  TaskStatus = "EN_PROCESO"
	TaskCompletada TaskStatus = "COMPLETADA"
)

var validTaskStatuses = map[TaskStatus]bool{
	TaskPendiente:  true,
	TaskEnProceso:  true,
	TaskCompletada: true,
}

func (s TaskStatus) Valid() bool { return validTaskStatuses[s] }

// DocumentFolder partitions a client's uploaded files.
type DocumentFolder string

const (
	FolderGeneral  DocumentFolder = "GENERAL"
	FolderFiscal   DocumentFolder = "FISCAL"
	FolderContable DocumentFolder = "CONTABLE"
	FolderLegal    DocumentFolder = "LEGAL"
	FolderNomina   DocumentFolder = "NOMINA"
)

var validFolders = map[DocumentFolder]bool{
	FolderGeneral:  true,
	FolderFiscal:   true,
	FolderContable: true,
	FolderLegal:    true,
	FolderNomina:   true,
}

func (f DocumentFolder) Valid() bool { return validFolders[f] }

// Party identifies which side of the portal produced a message or document.
type Party string

const (
	PartyClient Party = "client"
	PartyAdmin  Party = "admin"
)

func (p Party) Valid() bool { return p == PartyClient || p == PartyAdmin }

// CredentialSlot names one of the four credential files kept per client.
type CredentialSlot string

const (
	SlotCompanyEFirma CredentialSlot = "company_efirma"
	SlotCompanyCSF    CredentialSlot = "company_csf"
	SlotContactEFirma CredentialSlot = "contact_efirma"
	SlotContactCSF    CredentialSlot = "contact_csf"
)

// CredentialSlots lists every slot in a stable order.
var CredentialSlots = []CredentialSlot{
	SlotCompanyEFirma,
	SlotCompanyCSF,
	SlotContactEFirma,
	SlotContactCSF,
}

func (s CredentialSlot) Valid() bool {
	for _, slot := range CredentialSlots {
		if s == slot {
			return true
		}
	}
	return false
}
