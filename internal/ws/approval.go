package ws

import (
	"github.com/artpar/mobilecli/internal/protocol"
	"github.com/artpar/mobilecli/internal/session"
)

// approvalInputBytes maps a session's approval model and the client's
// tool_approval response to the literal bytes sent to the PTY's input
// sink. Grounded verbatim on the table in spec.md §4.2.1.
func approvalInputBytes(model session.ApprovalModel, response string) ([]byte, bool) {
	switch model {
	case session.ApprovalNumbered:
		switch response {
		case protocol.ApprovalYes:
			return []byte("1\n"), true
		case protocol.ApprovalYesAlways:
			return []byte("2\n"), true
		case protocol.ApprovalNo:
			return []byte("3\n"), true
		}
	case session.ApprovalYesNo:
		switch response {
		case protocol.ApprovalYes, protocol.ApprovalYesAlways:
			return []byte("y\n"), true
		case protocol.ApprovalNo:
			return []byte("n\n"), true
		}
	case session.ApprovalArrow:
		switch response {
		case protocol.ApprovalYes:
			return []byte("\r"), true
		case protocol.ApprovalYesAlways:
			return []byte("\x1b[C\r"), true
		case protocol.ApprovalNo:
			return []byte("\x1b[C\x1b[C\r"), true
		}
	}
	return nil, false
}
