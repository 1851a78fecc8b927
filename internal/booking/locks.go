package booking

import "sync"

// facilityLocks hands out one mutex per sub car park so admissions against
// the same facility are serialized across the conflict/capacity read and
// the insert. Locks are never released back; the set of facilities is small
// and long-lived.
type facilityLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newFacilityLocks() *facilityLocks {
	return &facilityLocks{locks: make(map[int64]*sync.Mutex)}
}

func (f *facilityLocks) get(subCarParkID int64) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.locks[subCarParkID]
	if !ok {
		l = &sync.Mutex{}
		f.locks[subCarParkID] = l
	}
	return l
}
