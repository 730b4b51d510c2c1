package ws

import (
	"encoding/base64"
	"encoding/json"

	"github.com/artpar/mobilecli/internal/logging"
	"github.com/artpar/mobilecli/internal/protocol"
	"github.com/artpar/mobilecli/internal/session"
)

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// dispatchClientFrame decodes one client frame's type and routes it to
// the matching handler. Unknown or unparseable frames are logged and
// dropped rather than closing the connection, matching the daemon's
// tolerant treatment of a single bad frame over an otherwise healthy
// socket.
func (d *Dispatcher) dispatchClientFrame(peer *session.MobilePeer, raw []byte) {
	msgType, err := protocol.PeekType(raw)
	if err != nil {
		return
	}

	if isFilesystemRequest(msgType) {
		if ok, retryMs := peer.Limiter.Allow(); !ok {
			d.sendRateLimited(peer, raw, retryMs)
			return
		}
	}

	switch msgType {
	case protocol.TypeSubscribe:
		d.handleSubscribe(peer, raw)
	case protocol.TypeUnsubscribe:
		d.handleUnsubscribe(peer, raw)
	case protocol.TypeSendInput:
		d.handleSendInput(peer, raw)
	case protocol.TypePtyResize:
		d.handlePtyResize(peer, raw)
	case protocol.TypePing:
		peer.Outbound.Push(protocol.Pong{Type: protocol.TypePong})
	case protocol.TypeGetSessions:
		peer.Outbound.Push(d.sessionsSnapshot())
	case protocol.TypeRenameSession:
		d.handleRenameSession(peer, raw)
	case protocol.TypeRegisterPushToken:
		d.handleRegisterPushToken(peer, raw)
	case protocol.TypeUnregisterToken:
		d.handleUnregisterPushToken(peer, raw)
	case protocol.TypeToolApproval:
		d.handleToolApproval(peer, raw)
	case protocol.TypeGetSessionHistory:
		d.handleGetSessionHistory(peer, raw)
	case protocol.TypeSpawnSession:
		d.handleSpawnSessionFrame(peer, raw)
	case protocol.TypeUploadFile:
		d.handleUploadFile(peer, raw)
	case protocol.TypeListDirectory:
		d.handleListDirectory(peer, raw)
	case protocol.TypeReadFile:
		d.handleReadFile(peer, raw)
	case protocol.TypeReadFileChunk:
		d.handleReadFileChunk(peer, raw)
	case protocol.TypeWriteFile:
		d.handleWriteFile(peer, raw)
	case protocol.TypeCreateDirectory:
		d.handleCreateDirectory(peer, raw)
	case protocol.TypeDeletePath:
		d.handleDeletePath(peer, raw)
	case protocol.TypeRenamePath:
		d.handleRenamePath(peer, raw)
	case protocol.TypeCopyPath:
		d.handleCopyPath(peer, raw)
	case protocol.TypeGetFileInfo:
		d.handleGetFileInfo(peer, raw)
	case protocol.TypeSearchFiles:
		d.handleSearchFiles(peer, raw)
	case protocol.TypeWatchDirectory:
		d.handleWatchDirectory(peer, raw)
	case protocol.TypeUnwatchDirectory:
		d.handleUnwatchDirectory(peer, raw)
	case protocol.TypeGetHomeDirectory:
		d.handleGetHomeDirectory(peer, raw)
	case protocol.TypeGetAllowedRoots:
		d.handleGetAllowedRoots(peer, raw)
	}
}

var filesystemRequestTypes = map[string]bool{
	protocol.TypeListDirectory:    true,
	protocol.TypeReadFile:         true,
	protocol.TypeReadFileChunk:    true,
	protocol.TypeWriteFile:        true,
	protocol.TypeCreateDirectory:  true,
	protocol.TypeDeletePath:       true,
	protocol.TypeRenamePath:       true,
	protocol.TypeCopyPath:         true,
	protocol.TypeGetFileInfo:      true,
	protocol.TypeSearchFiles:      true,
	protocol.TypeWatchDirectory:   true,
	protocol.TypeUnwatchDirectory: true,
	protocol.TypeGetHomeDirectory: true,
	protocol.TypeGetAllowedRoots:  true,
	protocol.TypeUploadFile:       true,
}

func isFilesystemRequest(msgType string) bool { return filesystemRequestTypes[msgType] }

// sendRateLimited replies with operation_error/rate_limited, reusing
// whatever request_id the frame carries (every filesystem request type
// has one in the same position).
func (d *Dispatcher) sendRateLimited(peer *session.MobilePeer, raw []byte, retryAfterMs int64) {
	var env struct {
		RequestID string `json:"request_id"`
	}
	_ = json.Unmarshal(raw, &env)
	peer.Outbound.Push(protocol.OperationError{
		Type:      protocol.TypeOperationError,
		RequestID: env.RequestID,
		Error:     protocol.RateLimited(retryAfterMs),
	})
}

func (d *Dispatcher) handleSubscribe(peer *session.MobilePeer, raw []byte) {
	var req protocol.Subscribe
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	d.Registry.Subscribe(peer.ID, req.SessionID)
	if sess, ok := d.Registry.GetSession(req.SessionID); ok {
		peer.Outbound.Push(protocol.PtyBytes{
			Type:      protocol.TypePtyBytes,
			SessionID: sess.SessionID,
			Data:      encodeBase64(sess.Scrollback.Snapshot()),
		})
	}
}

func (d *Dispatcher) handleUnsubscribe(peer *session.MobilePeer, raw []byte) {
	var req protocol.Unsubscribe
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	d.Registry.Unsubscribe(peer.ID, req.SessionID)
}

func (d *Dispatcher) handleSendInput(peer *session.MobilePeer, raw []byte) {
	var req protocol.SendInput
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	sess, ok := d.Registry.GetSession(req.SessionID)
	if !ok {
		return
	}
	d.clearWaitingAndBroadcast(req.SessionID)
	select {
	case sess.InputCh <- []byte(req.Text):
	default:
		logging.WithComponent("mobile").Warn("dropped input: session input channel full", logging.F("session_id", req.SessionID))
	}
}

// handlePtyResize forwards a resize request when the session has at
// least one viewer, with an unconditional exception for the (0,0)
// restore sentinel a teardown sends even after its last viewer has
// already dropped off, per spec.md §4.2.1/§8 and daemon.rs:1261-1282.
func (d *Dispatcher) handlePtyResize(peer *session.MobilePeer, raw []byte) {
	var req protocol.PtyResize
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	isRestore := req.Cols == 0 && req.Rows == 0
	if !isRestore && d.Registry.ViewCount(req.SessionID) == 0 {
		return
	}
	sess, ok := d.Registry.GetSession(req.SessionID)
	if !ok {
		return
	}
	select {
	case sess.ResizeCh <- session.ResizeCmd{Cols: req.Cols, Rows: req.Rows}:
	default:
	}
	d.broadcastToMobilePeers(protocol.PtyResized{Type: protocol.TypePtyResized, SessionID: req.SessionID, Cols: req.Cols, Rows: req.Rows})
}

func (d *Dispatcher) handleRenameSession(peer *session.MobilePeer, raw []byte) {
	var req protocol.RenameSession
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	if !d.Registry.RenameSession(req.SessionID, req.Name) {
		return
	}
	d.persistSessions()
	d.broadcastToMobilePeers(protocol.SessionRenamed{Type: protocol.TypeSessionRenamed, SessionID: req.SessionID, Name: req.Name})
}

func (d *Dispatcher) handleRegisterPushToken(peer *session.MobilePeer, raw []byte) {
	var req protocol.RegisterPushToken
	if err := json.Unmarshal(raw, &req); err != nil || req.Token == "" {
		return
	}
	d.registerPushToken(req.Token, req.Platform)
}

func (d *Dispatcher) handleUnregisterPushToken(peer *session.MobilePeer, raw []byte) {
	var req protocol.UnregisterPushToken
	if err := json.Unmarshal(raw, &req); err != nil || req.Token == "" {
		return
	}
	d.unregisterPushToken(req.Token)
}

// handleToolApproval maps the response onto PTY input bytes using the
// session's recorded approval model, then clears the wait state: the
// keystrokes themselves are what produces new output that would clear
// it naturally, but clearing eagerly avoids a race where a slow PTY
// echoes the old prompt back before the CLI consumes the injected keys.
func (d *Dispatcher) handleToolApproval(peer *session.MobilePeer, raw []byte) {
	var req protocol.ToolApproval
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	sess, ok := d.Registry.GetSession(req.SessionID)
	if !ok {
		return
	}
	state, hasWaiting := d.Registry.GetWaiting(req.SessionID)
	model := session.ApprovalNone
	if hasWaiting {
		model = state.ApprovalModel
	}
	data, ok := approvalInputBytes(model, req.Response)
	if !ok {
		return
	}
	d.clearWaitingAndBroadcast(req.SessionID)
	select {
	case sess.InputCh <- data:
	default:
	}
}

func (d *Dispatcher) handleGetSessionHistory(peer *session.MobilePeer, raw []byte) {
	var req protocol.GetSessionHistory
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	sess, ok := d.Registry.GetSession(req.SessionID)
	if !ok {
		return
	}
	maxBytes := 0
	if req.MaxBytes != nil {
		maxBytes = *req.MaxBytes
	}
	data := sess.Scrollback.Tail(maxBytes)
	peer.Outbound.Push(protocol.SessionHistory{
		Type:       protocol.TypeSessionHistory,
		SessionID:  req.SessionID,
		DataBase64: encodeBase64(data),
		TotalBytes: len(data),
	})
}

func (d *Dispatcher) handleSpawnSessionFrame(peer *session.MobilePeer, raw []byte) {
	var req protocol.SpawnSession
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	peer.Outbound.Push(d.handleSpawnSession(req))
}

func (d *Dispatcher) handleUploadFile(peer *session.MobilePeer, raw []byte) {
	var req protocol.UploadFile
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		d.sendOperationError(peer, req.RequestID, protocol.InvalidEncoding())
		return
	}

	projectPath := ""
	if sess, ok := d.Registry.GetSession(req.SessionID); ok {
		projectPath = sess.ProjectPath
	}
	if projectPath == "" {
		d.sendOperationError(peer, req.RequestID, protocol.NotFound())
		return
	}

	dest := buildUploadDestinationPath(projectPath, req.FileName)
	if fsErr := d.FileOps.WriteFile(dest, content, true); fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	peer.Outbound.Push(protocol.OperationSuccess{Type: protocol.TypeOperationSuccess, RequestID: req.RequestID})
}

func (d *Dispatcher) sendOperationError(peer *session.MobilePeer, requestID string, fsErr *protocol.FileSystemError) {
	peer.Outbound.Push(protocol.OperationError{Type: protocol.TypeOperationError, RequestID: requestID, Error: fsErr})
}

func (d *Dispatcher) handleListDirectory(peer *session.MobilePeer, raw []byte) {
	var req protocol.ListDirectory
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	listing, fsErr := d.FileOps.ListDirectory(req.Path, req.ShowHidden, req.SortField, req.SortOrder)
	if fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	listing.RequestID = req.RequestID
	peer.Outbound.Push(listing)
}

func (d *Dispatcher) handleReadFile(peer *session.MobilePeer, raw []byte) {
	var req protocol.ReadFile
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	content, fsErr := d.FileOps.ReadFile(req.Path, req.Offset, req.Length)
	if fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	content.RequestID = req.RequestID
	peer.Outbound.Push(content)
}

func (d *Dispatcher) handleReadFileChunk(peer *session.MobilePeer, raw []byte) {
	var req protocol.ReadFileChunk
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	chunk, fsErr := d.FileOps.ReadFileChunk(req.Path, req.ChunkSize, req.ChunkIndex)
	if fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	chunk.RequestID = req.RequestID
	peer.Outbound.Push(chunk)
}

func (d *Dispatcher) handleWriteFile(peer *session.MobilePeer, raw []byte) {
	var req protocol.WriteFile
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		d.sendOperationError(peer, req.RequestID, protocol.InvalidEncoding())
		return
	}
	if fsErr := d.FileOps.WriteFile(req.Path, content, req.CreateParents); fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	peer.Outbound.Push(protocol.OperationSuccess{Type: protocol.TypeOperationSuccess, RequestID: req.RequestID})
}

func (d *Dispatcher) handleCreateDirectory(peer *session.MobilePeer, raw []byte) {
	var req protocol.CreateDirectory
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	if fsErr := d.FileOps.CreateDirectory(req.Path); fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	peer.Outbound.Push(protocol.OperationSuccess{Type: protocol.TypeOperationSuccess, RequestID: req.RequestID})
}

func (d *Dispatcher) handleDeletePath(peer *session.MobilePeer, raw []byte) {
	var req protocol.DeletePath
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	if fsErr := d.FileOps.DeletePath(req.Path, req.Recursive); fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	peer.Outbound.Push(protocol.OperationSuccess{Type: protocol.TypeOperationSuccess, RequestID: req.RequestID})
}

func (d *Dispatcher) handleRenamePath(peer *session.MobilePeer, raw []byte) {
	var req protocol.RenamePath
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	if fsErr := d.FileOps.RenamePath(req.From, req.To); fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	peer.Outbound.Push(protocol.OperationSuccess{Type: protocol.TypeOperationSuccess, RequestID: req.RequestID})
}

func (d *Dispatcher) handleCopyPath(peer *session.MobilePeer, raw []byte) {
	var req protocol.CopyPath
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	if fsErr := d.FileOps.CopyPath(req.From, req.To); fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	peer.Outbound.Push(protocol.OperationSuccess{Type: protocol.TypeOperationSuccess, RequestID: req.RequestID})
}

func (d *Dispatcher) handleGetFileInfo(peer *session.MobilePeer, raw []byte) {
	var req protocol.GetFileInfo
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	entry, fsErr := d.FileOps.GetFileInfo(req.Path)
	if fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	peer.Outbound.Push(protocol.FileInfo{Type: protocol.TypeFileInfo, RequestID: req.RequestID, Entry: *entry})
}

func (d *Dispatcher) handleSearchFiles(peer *session.MobilePeer, raw []byte) {
	var req protocol.SearchFiles
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	root, matches, truncated, fsErr := d.Search.Search(req.Path, req.Pattern, req.ContentPattern, req.MaxDepth, req.MaxResults)
	if fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	peer.Outbound.Push(protocol.SearchResults{
		Type:      protocol.TypeSearchResults,
		RequestID: req.RequestID,
		Root:      root,
		Matches:   matches,
		Truncated: truncated,
	})
}

func (d *Dispatcher) handleWatchDirectory(peer *session.MobilePeer, raw []byte) {
	var req protocol.WatchDirectory
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	canonical, fsErr := d.Validator.ValidateExisting(req.Path)
	if fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	if d.Registry.WatchPath(peer.ID, canonical) {
		if err := d.Watcher.Watch(canonical); err != nil {
			d.Registry.UnwatchPath(peer.ID, canonical)
			d.sendOperationError(peer, req.RequestID, protocol.IOError(err.Error()))
			return
		}
	}
	peer.Outbound.Push(protocol.OperationSuccess{Type: protocol.TypeOperationSuccess, RequestID: req.RequestID})
}

func (d *Dispatcher) handleUnwatchDirectory(peer *session.MobilePeer, raw []byte) {
	var req protocol.UnwatchDirectory
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	canonical, fsErr := d.Validator.ValidateExisting(req.Path)
	if fsErr != nil {
		d.sendOperationError(peer, req.RequestID, fsErr)
		return
	}
	if d.Registry.UnwatchPath(peer.ID, canonical) {
		_ = d.Watcher.Unwatch(canonical)
	}
	peer.Outbound.Push(protocol.OperationSuccess{Type: protocol.TypeOperationSuccess, RequestID: req.RequestID})
}

func (d *Dispatcher) handleGetHomeDirectory(peer *session.MobilePeer, raw []byte) {
	var req protocol.GetHomeDirectory
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	home := ""
	if len(d.Config.AllowedRoots) > 0 {
		home = d.Config.AllowedRoots[0]
	}
	peer.Outbound.Push(protocol.HomeDirectory{Type: protocol.TypeHomeDirectory, RequestID: req.RequestID, Path: home})
}

func (d *Dispatcher) handleGetAllowedRoots(peer *session.MobilePeer, raw []byte) {
	var req protocol.GetAllowedRoots
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	peer.Outbound.Push(protocol.AllowedRoots{Type: protocol.TypeAllowedRoots, RequestID: req.RequestID, Roots: d.Config.AllowedRoots})
}
