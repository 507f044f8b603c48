package chat

import (
	"context"
	"strings"

	"github.com/HerbHall/studyforge/internal/ws"
	"github.com/google/uuid"
)

// serveStream answers one WebSocket request. Model output is forwarded as
// token frames, followed by a sources frame when pages were cited and a
// done frame carrying the authoritative answer. Cached and apology answers
// arrive as a single token frame.
func (m *Module) serveStream(ctx context.Context, c *ws.Client, in ws.Inbound) {
	reqID := uuid.NewString()
	if strings.TrimSpace(in.Message) == "" {
		_ = c.Send(ctx, ws.Message{Type: ws.MessageError, RequestID: reqID, Data: ws.ErrorData{Error: "Message cannot be empty"}})
		return
	}

	streamed := false
	onToken := func(ctx context.Context, chunk []byte) error {
		streamed = true
		return c.Send(ctx, ws.Message{Type: ws.MessageToken, RequestID: reqID, Data: ws.TokenData{Text: string(chunk)}})
	}
	resp := m.Answer(ctx, in.Message, in.UserID, onToken)

	if !streamed || resp.UsedFallback {
		if err := c.Send(ctx, ws.Message{Type: ws.MessageToken, RequestID: reqID, Data: ws.TokenData{Text: resp.Response.Answer}}); err != nil {
			return
		}
	}
	if len(resp.Response.Sources) > 0 {
		refs := make([]ws.SourceRef, len(resp.Response.Sources))
		for i, s := range resp.Response.Sources {
			refs[i] = ws.SourceRef{Title: s.Title, URL: s.URL}
		}
		if err := c.Send(ctx, ws.Message{Type: ws.MessageSources, RequestID: reqID, Data: ws.SourcesData{Sources: refs}}); err != nil {
			return
		}
	}
	_ = c.Send(ctx, ws.Message{Type: ws.MessageDone, RequestID: reqID, Data: ws.DoneData{
		Answer:       resp.Response.Answer,
		Cached:       resp.Cached,
		UsedFallback: resp.UsedFallback,
		BackendUsed:  derefOr(resp.BackendUsed, ""),
	}})
}
