package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/juhojo/blabbermouth/internal/services"
)

type KeyValidator interface {
	IsValidKey(ctx context.Context, value string) (bool, error)
}

// Subscriber holds an upgraded connection open until it closes.
type Subscriber interface {
	Serve(key string, conn services.Conn)
}

var subscribeUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The capability key is the credential; subscribers are not browsers only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SubscribeHandler upgrades GET /?ck=<key> to a WebSocket subscribed to the
// config owning key. The key is checked before the handshake; a bad key gets
// a plain 401 and the connection is closed.
type SubscribeHandler struct {
	keys KeyValidator
	hub  Subscriber
	log  *slog.Logger
}

func NewSubscribeHandler(keys KeyValidator, hub Subscriber, log *slog.Logger) *SubscribeHandler {
	return &SubscribeHandler{keys: keys, hub: hub, log: log}
}

func (h *SubscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ck := r.URL.Query().Get("ck")

	ok, err := h.keys.IsValidKey(r.Context(), ck)
	if err != nil {
		h.log.ErrorContext(r.Context(), "capability key lookup failed", "error", err)
	}
	if err != nil || !ok {
		w.Header().Set("Connection", "close")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := subscribeUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	h.log.Debug("subscriber connected", "remote", r.RemoteAddr)
	h.hub.Serve(ck, conn)
	h.log.Debug("subscriber disconnected", "remote", r.RemoteAddr)
}
