package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"repolens/internal/analysis"
	"repolens/internal/types"
)

const (
	analyzeWSWriteWait = 10 * time.Second
	analyzeWSPongWait  = 60 * time.Second
	analyzeWSPingEvery = (analyzeWSPongWait * 9) / 10
)

var analyzeWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type analyzeWSInbound struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Token string `json:"token,omitempty"`
}

type analyzeWSOutbound struct {
	Type    string                `json:"type"`
	Stage   string                `json:"stage,omitempty"`
	Detail  string                `json:"detail,omitempty"`
	Result  *types.AnalysisResult `json:"result,omitempty"`
	Status  int                   `json:"status,omitempty"`
	Code    string                `json:"code,omitempty"`
	Message string                `json:"message,omitempty"`
}

// AnalyzeWS streams a repository analysis. The client sends
// {"type":"analyze","url":...} and receives "stage" events followed by one
// "result" or "error". One analysis runs at a time per connection.
func (h *Handler) AnalyzeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := analyzeWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(analyzeWSPongWait)); err != nil {
		log.Printf("analyze ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(analyzeWSPongWait))
	})

	writeCh := make(chan analyzeWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(analyzeWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(analyzeWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(analyzeWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	uid := userID(r)
	headerToken := githubToken(r)

	var busy atomic.Bool
	for {
		var in analyzeWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch msgType := strings.ToLower(strings.TrimSpace(in.Type)); msgType {
		case "ping":
			pushAnalyzeWS(writeCh, analyzeWSOutbound{Type: "pong"})
		case "analyze":
			if strings.TrimSpace(in.URL) == "" {
				pushAnalyzeWS(writeCh, analyzeWSOutbound{
					Type:    "error",
					Status:  http.StatusBadRequest,
					Code:    "invalid_argument",
					Message: "url is required",
				})
				continue
			}
			if !busy.CompareAndSwap(false, true) {
				pushAnalyzeWS(writeCh, analyzeWSOutbound{
					Type:    "error",
					Status:  http.StatusConflict,
					Code:    "busy",
					Message: "an analysis is already running on this connection",
				})
				continue
			}
			token := strings.TrimSpace(in.Token)
			if token == "" {
				token = headerToken
			}
			go func(url string) {
				defer busy.Store(false)
				h.streamAnalysis(ctx, writeCh, url, token, uid)
			}(in.URL)
		case "":
			pushAnalyzeWS(writeCh, analyzeWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "type is required",
			})
		default:
			pushAnalyzeWS(writeCh, analyzeWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

func (h *Handler) streamAnalysis(ctx context.Context, writeCh chan analyzeWSOutbound, url, token, uid string) {
	ctx = analysis.WithProgress(ctx, func(stage analysis.Stage, detail string) {
		pushAnalyzeWS(writeCh, analyzeWSOutbound{Type: "stage", Stage: string(stage), Detail: detail})
	})
	res, err := h.svc.AnalyzeURL(ctx, url, token, uid)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		status, msg := statusFor(err)
		h.log.Printf("analyze ws %s: %d: %v", url, status, err)
		pushAnalyzeWS(writeCh, analyzeWSOutbound{
			Type:    "error",
			Status:  status,
			Code:    http.StatusText(status),
			Message: msg,
		})
		return
	}
	pushAnalyzeWS(writeCh, analyzeWSOutbound{Type: "result", Result: res})
}

// pushAnalyzeWS never blocks: when the buffer is full the oldest pending
// message is dropped.
func pushAnalyzeWS(writeCh chan analyzeWSOutbound, out analyzeWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
