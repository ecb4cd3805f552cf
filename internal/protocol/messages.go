package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
	// ResumePlayerID reattaches to an existing colony instead of founding one.
	ResumePlayerID uint32           `json:"resume_player_id,omitempty"`
	Capabilities   HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue      int `json:"max_queue,omitempty"`
	ObsEveryTicks int `json:"obs_every_ticks,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldID         string         `json:"world_id"`
	PlayerID        uint32         `json:"player_id"`
	BaseCampSID     uint64         `json:"base_camp_sid,omitempty"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz int     `json:"tick_rate_hz"`
	ChunkSize  int     `json:"chunk_size"`
	CellSize   float64 `json:"cell_size"`
	Seed       int64   `json:"seed"`
}

type CatalogDigests struct {
	BuildingsDigest    string `json:"buildings_digest"`
	ResourcesDigest    string `json:"resources_digest"`
	UnitsDigest        string `json:"units_digest"`
	TechnologiesDigest string `json:"technologies_digest"`
}

// CMD (client -> server)
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Cmd             string `json:"cmd"`

	Building    string  `json:"building,omitempty"`
	Cell        *[2]int `json:"cell,omitempty"`
	Orientation int     `json:"orientation,omitempty"`

	HID      uint64 `json:"hid,omitempty"`
	SID      uint64 `json:"sid,omitempty"`
	ActionID string `json:"action_id,omitempty"`
}

// Command names carried in CmdMsg.Cmd.
const (
	CmdPlaceBuilding = "PLACE_BUILDING"
	CmdGoTo          = "GOTO"
	CmdInvokeAction  = "INVOKE_ACTION"
	CmdRemoveAgent   = "REMOVE_AGENT"
)

// ACK (server -> client), one per CMD.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
	// SID is set when the command created a structure.
	SID uint64 `json:"sid,omitempty"`
}

// ERROR (server -> client) for messages that could not be routed.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
