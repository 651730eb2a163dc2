// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package forks

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/forkpoint/forkd/log"
)

var logger = log.WithContext("pkg", "forks")

const pingPeriod = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleSubscribeTransactions streams the fork's transaction records over a
// websocket as they are appended. The stream ends when the fork is
// destroyed or the client goes away.
func (f *Forks) handleSubscribeTransactions(w http.ResponseWriter, req *http.Request) error {
	id := mux.Vars(req)["id"]
	ch, cancel, err := f.dispatcher.SubscribeTransactions(id)
	if err != nil {
		return convertForkError(err)
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				// fork destroyed
				return conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "fork destroyed"),
					time.Now().Add(time.Second))
			}
			if err := conn.WriteJSON(&rec); err != nil {
				logger.Debug("subscription write failed", "fork", id, "err", err)
				return nil
			}
		case <-pinger.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-req.Context().Done():
			return nil
		}
	}
}
