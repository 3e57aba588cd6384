package service

import "sync/atomic"

// OrderSequence hands out order ids as a process-local monotonic counter.
// It is seeded from the highest persisted order id at startup, so restarts
// of a single process do not collide with existing rows. Two processes
// sharing one database can still collide; a production deployment would
// delegate id assignment to the database instead.
type OrderSequence struct {
	last atomic.Int64
}

func NewOrderSequence(start int) *OrderSequence {
	s := &OrderSequence{}
	s.last.Store(int64(start))
	return s
}

// Next returns a value strictly greater than every value it previously
// returned within this process. Safe for concurrent use.
func (s *OrderSequence) Next() int {
	return int(s.last.Add(1))
}
