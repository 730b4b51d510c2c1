// Package protocol defines the JSON wire format shared by mobile clients,
// PTY wrappers, and the daemon: the ClientMessage/ServerMessage tagged
// unions (keyed by a "type" field, snake_case, mirroring the original
// Rust serde schema), the PTY registration sub-protocol, and the
// FileSystemError taxonomy (see errors.go).
package protocol

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Envelope is decoded first to discover a frame's type before decoding
// the type-specific payload, the same two-step pattern the teacher's
// daemon package uses for its Request/Params json.RawMessage dispatch.
type Envelope struct {
	Type string `json:"type"`
}

// PeekType extracts the "type" discriminator from a raw frame without
// committing to a specific message struct.
func PeekType(raw []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

// --- Client -> Server messages ---

const (
	TypeHello             = "hello"
	TypeSubscribe         = "subscribe"
	TypeUnsubscribe       = "unsubscribe"
	TypeSendInput         = "send_input"
	TypePtyResize         = "pty_resize"
	TypePing              = "ping"
	TypeGetSessions       = "get_sessions"
	TypeRenameSession     = "rename_session"
	TypeRegisterPushToken = "register_push_token"
	TypeUnregisterToken   = "unregister_push_token"
	TypeToolApproval      = "tool_approval"
	TypeGetSessionHistory = "get_session_history"
	TypeSpawnSession      = "spawn_session"
	TypeListDirectory     = "list_directory"
	TypeReadFile          = "read_file"
	TypeReadFileChunk     = "read_file_chunk"
	TypeWriteFile         = "write_file"
	TypeCreateDirectory   = "create_directory"
	TypeDeletePath        = "delete_path"
	TypeRenamePath        = "rename_path"
	TypeCopyPath          = "copy_path"
	TypeGetFileInfo       = "get_file_info"
	TypeSearchFiles       = "search_files"
	TypeWatchDirectory    = "watch_directory"
	TypeUnwatchDirectory  = "unwatch_directory"
	TypeGetHomeDirectory  = "get_home_directory"
	TypeGetAllowedRoots   = "get_allowed_roots"
	TypeUploadFile        = "upload_file"
)

// --- Server -> Client messages ---

const (
	TypeWelcome          = "welcome"
	TypeError            = "error"
	TypePtyBytes         = "pty_bytes"
	TypeSessionInfo      = "session_info"
	TypeSessions         = "sessions"
	TypeSessionEnded     = "session_ended"
	TypeSessionRenamed   = "session_renamed"
	TypePtyResized       = "pty_resized"
	TypePong             = "pong"
	TypeWaitingForInput  = "waiting_for_input"
	TypeWaitingCleared   = "waiting_cleared"
	TypeSessionHistory   = "session_history"
	TypeSpawnResult      = "spawn_result"
	TypeDirectoryListing = "directory_listing"
	TypeFileContent      = "file_content"
	TypeFileChunk        = "file_chunk"
	TypeFileInfo         = "file_info"
	TypeOperationSuccess = "operation_success"
	TypeOperationError   = "operation_error"
	TypeSearchResults    = "search_results"
	TypeFileChanged      = "file_changed"
	TypeHomeDirectory    = "home_directory"
	TypeAllowedRoots     = "allowed_roots"
)

// --- PTY wrapper <-> daemon sub-protocol (loopback only) ---

const (
	TypeRegisterPty = "register_pty"
	TypeRegistered  = "registered"
	TypePtyOutput   = "pty_output"
	TypeInput       = "input"
	TypeResize      = "resize"
)

// RegisterPty is the first (and only classification-relevant) frame a
// loopback wrapper sends.
type RegisterPty struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	Name        string `json:"name"`
	Command     string `json:"command"`
	ProjectPath string `json:"project_path"`
}

// PtyOutput carries base64-encoded bytes the shell produced.
type PtyOutput struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// WrapperSessionEnded is sent by the wrapper on shell exit.
type WrapperSessionEnded struct {
	Type     string `json:"type"`
	ExitCode int    `json:"exit_code"`
}

// DaemonInput is sent to the wrapper to deliver typed input.
type DaemonInput struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// DaemonResize is sent to the wrapper to change terminal dimensions.
type DaemonResize struct {
	Type string `json:"type"`
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// Hello is the mobile peer's opening handshake frame.
type Hello struct {
	Type          string `json:"type"`
	AuthToken     string `json:"auth_token,omitempty"`
	ClientVersion string `json:"client_version"`
}

type Subscribe struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type Unsubscribe struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type SendInput struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type PtyResize struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Cols      uint16 `json:"cols"`
	Rows      uint16 `json:"rows"`
}

type Ping struct {
	Type string `json:"type"`
}

type GetSessions struct {
	Type string `json:"type"`
}

type RenameSession struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

type RegisterPushToken struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Kind     string `json:"kind"`
	Platform string `json:"platform"`
}

type UnregisterPushToken struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Approval response values accepted by ToolApproval.
const (
	ApprovalYes       = "yes"
	ApprovalYesAlways = "yes_always"
	ApprovalNo        = "no"
)

type ToolApproval struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

type GetSessionHistory struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	MaxBytes  *int   `json:"max_bytes,omitempty"`
}

type SpawnSession struct {
	Type       string   `json:"type"`
	Command    string   `json:"command"`
	Args       []string `json:"args,omitempty"`
	Name       string   `json:"name,omitempty"`
	WorkingDir string   `json:"working_dir,omitempty"`
}

// SortField / SortOrder control list_directory ordering.
type SortField string
type SortOrder string

const (
	SortByName     SortField = "name"
	SortBySize     SortField = "size"
	SortByModified SortField = "modified"
	SortByExt      SortField = "ext"

	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type ListDirectory struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id"`
	Path       string    `json:"path"`
	ShowHidden bool      `json:"show_hidden,omitempty"`
	SortField  SortField `json:"sort_field,omitempty"`
	SortOrder  SortOrder `json:"sort_order,omitempty"`
}

// FileEncoding describes how FileContent.Data is encoded.
type FileEncoding string

const (
	EncodingUtf8   FileEncoding = "utf8"
	EncodingBase64 FileEncoding = "base64"
)

type ReadFile struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Path      string `json:"path"`
	Offset    *int64 `json:"offset,omitempty"`
	Length    *int64 `json:"length,omitempty"`
}

type ReadFileChunk struct {
	Type       string `json:"type"`
	RequestID  string `json:"request_id"`
	Path       string `json:"path"`
	ChunkSize  int    `json:"chunk_size"`
	ChunkIndex int    `json:"chunk_index"`
}

type WriteFile struct {
	Type          string `json:"type"`
	RequestID     string `json:"request_id"`
	Path          string `json:"path"`
	ContentBase64 string `json:"content_base64"`
	CreateParents bool   `json:"create_parents,omitempty"`
}

type CreateDirectory struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Path      string `json:"path"`
}

type DeletePath struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Path      string `json:"path"`
	Recursive bool   `json:"recursive,omitempty"`
}

type RenamePath struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type CopyPath struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type GetFileInfo struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Path      string `json:"path"`
}

type SearchFiles struct {
	Type           string  `json:"type"`
	RequestID      string  `json:"request_id"`
	Path           string  `json:"path"`
	Pattern        string  `json:"pattern"`
	ContentPattern *string `json:"content_pattern,omitempty"`
	MaxDepth       *int    `json:"max_depth,omitempty"`
	MaxResults     int     `json:"max_results,omitempty"`
}

type WatchDirectory struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Path      string `json:"path"`
}

type UnwatchDirectory struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Path      string `json:"path"`
}

type GetHomeDirectory struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
}

type GetAllowedRoots struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
}

type UploadFile struct {
	Type          string `json:"type"`
	RequestID     string `json:"request_id"`
	SessionID     string `json:"session_id"`
	FileName      string `json:"file_name"`
	ContentBase64 string `json:"content_base64"`
	MimeType      string `json:"mime_type,omitempty"`
}

// --- Server -> client payloads ---

type Welcome struct {
	Type          string `json:"type"`
	ServerVersion string `json:"server_version"`
	Authenticated bool   `json:"authenticated"`
	DeviceID      string `json:"device_id,omitempty"`
	DeviceName    string `json:"device_name,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type PtyBytes struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
}

// SessionInfo is the protocol-level view of a PtySession, also the shape
// persisted (pretty-printed array) to sessions.json.
type SessionInfo struct {
	SessionID   string `json:"session_id"`
	Name        string `json:"name"`
	Command     string `json:"command"`
	ProjectPath string `json:"project_path"`
	StartedAt   int64  `json:"started_at"`
}

type Sessions struct {
	Type     string        `json:"type"`
	Sessions []SessionInfo `json:"sessions"`
}

type SessionEnded struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	ExitCode  int    `json:"exit_code"`
}

type SessionRenamed struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

type PtyResized struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Cols      uint16 `json:"cols"`
	Rows      uint16 `json:"rows"`
}

type Pong struct {
	Type string `json:"type"`
}

type WaitingForInput struct {
	Type          string `json:"type"`
	SessionID     string `json:"session_id"`
	WaitType      string `json:"wait_type"`
	Prompt        string `json:"prompt"`
	ApprovalModel string `json:"approval_model"`
}

type WaitingCleared struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type SessionHistory struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	DataBase64 string `json:"data_base64"`
	TotalBytes int    `json:"total_bytes"`
}

type SpawnResult struct {
	Type      string  `json:"type"`
	Success   bool    `json:"success"`
	SessionID string  `json:"session_id,omitempty"`
	Error     *string `json:"error,omitempty"`
}

// FileEntry describes one directory entry or search match target.
type FileEntry struct {
	Name          string  `json:"name"`
	Path          string  `json:"path"`
	IsDirectory   bool    `json:"is_directory"`
	IsSymlink     bool    `json:"is_symlink"`
	IsHidden      bool    `json:"is_hidden"`
	Size          int64   `json:"size"`
	Modified      int64   `json:"modified"`
	Created       *int64  `json:"created,omitempty"`
	MimeType      *string `json:"mime_type,omitempty"`
	Permissions   *string `json:"permissions,omitempty"`
	SymlinkTarget *string `json:"symlink_target,omitempty"`
	GitStatus     *string `json:"git_status,omitempty"`
}

type DirectoryListing struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id"`
	Path      string      `json:"path"`
	Entries   []FileEntry `json:"entries"`
	Truncated bool        `json:"truncated"`
}

type FileContent struct {
	Type      string       `json:"type"`
	RequestID string       `json:"request_id"`
	Path      string       `json:"path"`
	Encoding  FileEncoding `json:"encoding"`
	Data      string       `json:"data"`
	Size      int64        `json:"size"`
}

type FileChunk struct {
	Type        string `json:"type"`
	RequestID   string `json:"request_id"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	TotalSize   int64  `json:"total_size"`
	DataBase64  string `json:"data_base64"`
	MD5Hex      string `json:"md5_hex"`
	IsLast      bool   `json:"is_last"`
}

type FileInfo struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id"`
	Entry     FileEntry `json:"entry"`
}

type OperationSuccess struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
}

type OperationError struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id"`
	Error     *FileSystemError `json:"error"`
}

type ContentMatch struct {
	LineNumber  int    `json:"line_number"`
	LineContent string `json:"line_content"`
	MatchStart  int    `json:"match_start"`
	MatchEnd    int    `json:"match_end"`
}

type SearchMatch struct {
	Path           string         `json:"path"`
	Entry          FileEntry      `json:"entry"`
	ContentMatches []ContentMatch `json:"content_matches,omitempty"`
}

type SearchResults struct {
	Type      string        `json:"type"`
	RequestID string        `json:"request_id"`
	Root      string        `json:"root"`
	Matches   []SearchMatch `json:"matches"`
	Truncated bool          `json:"truncated"`
}

// ChangeType classifies a FileWatcher event. Renamed exists for wire
// compatibility with the original schema but the watcher (see internal/fs)
// never constructs it: the spec's classification policy is a strict
// three-way Created/Modified/Deleted split.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
)

type FileChanged struct {
	Type       string     `json:"type"`
	Path       string     `json:"path"`
	ChangeType ChangeType `json:"change_type"`
	Entry      *FileEntry `json:"entry,omitempty"`
}

type HomeDirectory struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Path      string `json:"path"`
}

type AllowedRoots struct {
	Type      string   `json:"type"`
	RequestID string   `json:"request_id"`
	Roots     []string `json:"roots"`
}

// ConnectionInfo backs the QR pairing URL. The token is deliberately
// excluded from the encoded URL: QR pairing authenticates via device_id
// provenance, not the pairing token (see spec §9 open question on lenient
// auth).
type ConnectionInfo struct {
	Host       string
	Port       int
	DeviceID   string
	DeviceName string
}

// BuildPairingURL renders the mobilecli:// deep link a paired client
// scans from a QR code (rendering the QR image itself is a CLI-front-end
// concern and out of scope here).
func BuildPairingURL(info ConnectionInfo) string {
	v := url.Values{}
	v.Set("device_id", info.DeviceID)
	v.Set("device_name", info.DeviceName)
	return fmt.Sprintf("mobilecli://%s:%d?%s", info.Host, info.Port, v.Encode())
}
