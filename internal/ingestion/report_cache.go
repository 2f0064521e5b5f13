package ingestion

import "container/list"

// ReportCache remembers the last published reports by request id so a
// redelivered request is answered with the same report instead of a new run.
// Not thread-safe; only the worker loop touches it.
type ReportCache struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List

	evictions int64
}

type cachedReport struct {
	requestID string
	subject   string
	data      []byte
}

func NewReportCache(capacity int) *ReportCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ReportCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Get returns the cached subject and report (promotes to front).
func (c *ReportCache) Get(requestID string) (string, []byte, bool) {
	elem, ok := c.cache[requestID]
	if !ok {
		return "", nil, false
	}
	c.lruList.MoveToFront(elem)
	entry := elem.Value.(*cachedReport)
	return entry.subject, entry.data, true
}

// Put inserts or replaces an entry, evicting the least recently used one
// when over capacity.
func (c *ReportCache) Put(requestID, subject string, data []byte) {
	if elem, ok := c.cache[requestID]; ok {
		entry := elem.Value.(*cachedReport)
		entry.subject, entry.data = subject, data
		c.lruList.MoveToFront(elem)
		return
	}

	c.cache[requestID] = c.lruList.PushFront(&cachedReport{requestID: requestID, subject: subject, data: data})

	if c.lruList.Len() > c.capacity {
		oldest := c.lruList.Back()
		c.lruList.Remove(oldest)
		delete(c.cache, oldest.Value.(*cachedReport).requestID)
		c.evictions++
	}
}

// Size returns current number of entries
func (c *ReportCache) Size() int {
	return c.lruList.Len()
}

// Evictions returns total evictions
func (c *ReportCache) Evictions() int64 {
	return c.evictions
}
