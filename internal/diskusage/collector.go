package diskusage

import "sync"

// collector gathers reported items from concurrent scan workers using a mutex.
type collector struct {
	mu           sync.Mutex // Protect concurrent access
	items        []FileSystemItem
	processed    int64
	matchedBytes uint64
}

// initialItems caps the up-front allocation; most entries are filtered out by the size limit.
const initialItems = 256

// newCollector creates a collector for a scan of the given number of entries.
func newCollector(entries int) *collector {
	return &collector{
		items: make([]FileSystemItem, 0, min(entries, initialItems)),
	}
}

// done records a processed entry that produced no item.
func (c *collector) done() {
	c.mu.Lock()
	c.processed++
	c.mu.Unlock()
}

// add appends an item. The lock is held only for the append and counters.
func (c *collector) add(item FileSystemItem) {
	c.mu.Lock()
	c.items = append(c.items, item)
	c.processed++
	c.matchedBytes += item.Size
	c.mu.Unlock()
}

// snapshot returns the progress counters.
func (c *collector) snapshot() (int64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.processed, c.matchedBytes
}

// finalize hands out the collected items. The collector must not be used afterwards.
func (c *collector) finalize() []FileSystemItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.items
	c.items = nil

	return items
}
