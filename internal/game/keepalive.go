package game

import (
	"context"
	"time"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

// KeepAliveInterval is how often every live connection gets a KEEPALIVE
// envelope so idle sockets survive proxies and load balancers.
const KeepAliveInterval = 10 * time.Second

// RunKeepAlive fans KEEPALIVE out to every registered connection on a fixed
// interval until the context ends. Dead connections get pruned by the
// broadcast itself.
func (c *Coordinator) RunKeepAlive(ctx context.Context) {
	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	msg := internal.NewMessage(internal.TypeKeepAlive, "", "ping")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.registry.Broadcast(c.registry.AllConns(), msg)
		}
	}
}
