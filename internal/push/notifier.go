// Package push sends fire-and-forget Expo push notifications when a PTY
// session starts waiting for input. Grounded on the daemon's own
// process-shared http.Client idiom (internal/logging's single package-level
// instance) generalized to a small request-batching client, since none of
// the example repos' HTTP stacks (pion/webrtc's STUN/TURN clients, the
// relay server's http.Server) cover an outbound notification POST.
package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/mobilecli/internal/logging"
	"github.com/artpar/mobilecli/internal/session"
)

const expoPushURL = "https://exp.host/--/api/v2/push/send"

var httpClient = &http.Client{Timeout: 10 * time.Second}

// expoMessage is one entry of the batched POST body the Expo push API
// expects.
type expoMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  any    `json:"data,omitempty"`
}

// Notifier POSTs batched Expo push messages for a set of device tokens.
// It never returns an error to its caller: every failure is logged and
// dropped, matching the spec's fire-and-forget contract.
type Notifier struct {
	log *logging.Logger
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{log: logging.WithComponent("push")}
}

// Notify sends title/body to every token in tokens, tagging each message
// with sessionID so a tapped notification can deep-link back to it. The
// call is fire-and-forget: it spawns its own goroutine and returns
// immediately.
func (n *Notifier) Notify(tokens []string, sessionID, title, body string) {
	if len(tokens) == 0 {
		return
	}
	messages := make([]expoMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, expoMessage{
			To:    token,
			Title: title,
			Body:  body,
			Data:  map[string]string{"session_id": sessionID},
		})
	}

	go func() {
		payload, err := json.Marshal(messages)
		if err != nil {
			n.log.Error("marshal push payload failed", logging.F("error", err.Error()))
			return
		}
		req, err := http.NewRequest(http.MethodPost, expoPushURL, bytes.NewReader(payload))
		if err != nil {
			n.log.Error("build push request failed", logging.F("error", err.Error()))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			n.log.Warn("push delivery failed", logging.F("error", err.Error(), "session_id", sessionID))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			n.log.Warn("push delivery rejected", logging.F("status", resp.Status, "session_id", sessionID))
		}
	}()
}

// waitTitles maps a WaitType to the notification title suffix the spec
// asks for: title = "{session_name} · {wait_title}".
var waitTitles = map[session.WaitType]string{
	session.WaitToolApproval:       "Tool approval needed",
	session.WaitPlanApproval:       "Plan approval needed",
	session.WaitClarifyingQuestion: "Has a question",
	session.WaitAwaitingResponse:   "Waiting for input",
}

const maxClarifyingQuestionBodyChars = 100

// BuildNotification derives the (title, body) pair for a WaitEvent on a
// session named sessionName, paraphrasing and truncating the prompt for
// clarifying_question the way the spec requires.
func BuildNotification(sessionName string, ev *session.WaitEvent) (title, body string) {
	suffix, ok := waitTitles[ev.WaitType]
	if !ok {
		suffix = "Waiting for input"
	}
	title = fmt.Sprintf("%s · %s", sessionName, suffix)

	body = session.NormalizeOutput(ev.Prompt)
	if ev.WaitType == session.WaitClarifyingQuestion {
		if runes := []rune(body); len(runes) > maxClarifyingQuestionBodyChars {
			body = strings.TrimSpace(string(runes[:maxClarifyingQuestionBodyChars])) + "…"
		}
	}
	return title, body
}
