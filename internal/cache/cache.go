// Package cache provides a content-addressed store of derived payloads.
//
// # Why Cache Package Exists
//
// Data-producing blocks (buffers, textures) derive their payload from the
// shape of their upstream subgraph, not from their identity. Two buffers
// fed by textually identical subgraphs compute the same Key and therefore
// share one Object. The Pool tracks which owners currently claim each entry:
//   - **One entry per owner:** registering an owner on a key removes it from
//     whatever entry it claimed before.
//   - **Owner-set lifetime:** an entry with no owners left is orphaned and is
//     purged after every mutation.
//   - **No empty entries:** an owner that produces no payload is never cached.
//
// # Thread-Safety
//
// Every exported Pool method takes the pool mutex. Owners compute their keys
// outside of it, so CacheKey must not call back into the pool.
package cache

import (
	"sync"
)

// Key identifies a payload by content. The empty key means "not cacheable".
type Key string

// Data is a cached payload.
type Data interface {
	// Size is the payload size in bytes.
	Size() int
}

// Cacheable is implemented by every data-producing owner. Implementations
// are used as map keys and must be comparable (pointers or small structs of
// pointers).
type Cacheable interface {
	CacheKey() Key
	CreateCacheData() Data
}

// Object is one cache entry.
type Object struct {
	key    Key
	data   Data
	owners map[Cacheable]struct{}
}

func (o *Object) Key() Key { return o.key }

func (o *Object) Data() Data { return o.data }

// Owners returns the number of owners currently claiming the entry.
func (o *Object) Owners() int { return len(o.owners) }

// Pool maps keys to shared objects and owners to the key they claim.
type Pool struct {
	mu      sync.Mutex
	objects map[Key]*Object
	owners  map[Cacheable]*Object
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		objects: make(map[Key]*Object),
		owners:  make(map[Cacheable]*Object),
	}
}

// Get returns the object for the owner's current key, creating it with the
// owner's payload if needed. It returns nil when the owner has no key or
// produces no payload; in both cases the owner no longer claims any entry.
func (p *Pool) Get(owner Cacheable) *Object {
	key := owner.CacheKey()

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.purge()

	if key == "" {
		p.release(owner)
		return nil
	}

	obj, ok := p.objects[key]
	if !ok {
		data := owner.CreateCacheData()
		if data == nil {
			p.release(owner)
			return nil
		}
		obj = &Object{key: key, data: data, owners: make(map[Cacheable]struct{})}
		p.objects[key] = obj
	}

	if prev, ok := p.owners[owner]; ok && prev != obj {
		delete(prev.owners, owner)
	}
	obj.owners[owner] = struct{}{}
	p.owners[owner] = obj
	return obj
}

// Release drops the owner's claim, e.g. when its block is deleted.
func (p *Pool) Release(owner Cacheable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release(owner)
	p.purge()
}

// Lookup returns the object stored for key without registering anything.
func (p *Pool) Lookup(key Key) (*Object, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	obj, ok := p.objects[key]
	return obj, ok
}

// Owner returns the object the owner currently claims.
func (p *Pool) Owner(owner Cacheable) (*Object, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	obj, ok := p.owners[owner]
	return obj, ok
}

// Purge removes every orphaned entry and reports how many were removed.
func (p *Pool) Purge() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.purge()
}

// Len returns the number of live entries.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.objects)
}

// Size returns the summed payload size of all live entries.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, obj := range p.objects {
		total += obj.data.Size()
	}
	return total
}

func (p *Pool) release(owner Cacheable) {
	if prev, ok := p.owners[owner]; ok {
		delete(prev.owners, owner)
		delete(p.owners, owner)
	}
}

func (p *Pool) purge() int {
	removed := 0
	for key, obj := range p.objects {
		if len(obj.owners) == 0 {
			delete(p.objects, key)
			removed++
		}
	}
	return removed
}
