package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/shamanec/GADS-xctest-runner/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: time.Duration(time.Second * 5),
}

const writeWait = 10 * time.Second

// RunOutput streams the xcodebuild output of the current run over a websocket
func (s *Server) RunOutput(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.RunnerLogger.LogError("run_output", "WebSocket upgrade error: "+err.Error())
		return
	}
	defer conn.Close()

	output, unsubscribe := s.Output.Subscribe()
	defer unsubscribe()

	// Reading is only needed to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case chunk, ok := <-output:
			if !ok {
				conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, chunk); err != nil {
				logger.RunnerLogger.LogDebug("run_output", "WebSocket write error: "+err.Error())
				return
			}
		case <-closed:
			return
		}
	}
}
