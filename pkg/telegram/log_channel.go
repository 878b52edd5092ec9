package telegram

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// LogChannel writes messages to a logger instead of a chat. Used when no bot
// token is configured.
type LogChannel struct {
	logger *log.Logger

	mu     sync.Mutex
	nextID int
	live   map[string]bool
}

func NewLogChannel(logger *log.Logger) *LogChannel {
	if logger == nil {
		logger = log.Default()
	}
	return &LogChannel{logger: logger, live: make(map[string]bool)}
}

func (c *LogChannel) Send(_ context.Context, text string) (string, error) {
	c.mu.Lock()
	c.nextID++
	ref := fmt.Sprintf("log-%d", c.nextID)
	c.live[ref] = true
	c.mu.Unlock()

	c.logger.Printf("💬 [%s] new message:\n%s", ref, text)
	return ref, nil
}

// Update rejects references this process never issued, e.g. after a restart
func (c *LogChannel) Update(_ context.Context, ref, text string) (UpdateResult, error) {
	c.mu.Lock()
	known := c.live[ref]
	c.mu.Unlock()
	if !known {
		return Rejected, nil
	}
	c.logger.Printf("✏️  [%s] edited:\n%s", ref, text)
	return Updated, nil
}
