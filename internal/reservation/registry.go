package reservation

import (
	"time"

	"asset-reservation-backend/internal/parse"
)

// AssetID identifies an asset. IDs are assigned in increasing order starting
// at 0 and are never handed out twice, even after the asset is removed.
type AssetID uint64

// Asset is a named reservable resource.
type Asset struct {
	ID        AssetID
	Name      string
	CreatedAt time.Time
}

// registry owns the set of reservable assets. It is not safe for concurrent
// use; the Engine serialises access.
type registry struct {
	assets map[AssetID]*Asset
	order  []AssetID
	nextID AssetID
}

func newRegistry() *registry {
	return &registry{assets: make(map[AssetID]*Asset)}
}

// prepare validates name and builds the asset that add would store, without
// changing the registry.
func (r *registry) prepare(rawName string, now time.Time) (Asset, error) {
	name, err := parse.AssetName(rawName)
	if err != nil {
		return Asset{}, invalidArgumentf("%v", err)
	}
	return Asset{ID: r.nextID, Name: name, CreatedAt: now}, nil
}

func (r *registry) insert(a Asset) {
	stored := a
	r.assets[a.ID] = &stored
	r.order = append(r.order, a.ID)
	if a.ID >= r.nextID {
		r.nextID = a.ID + 1
	}
}

func (r *registry) get(id AssetID) (*Asset, bool) {
	a, ok := r.assets[id]
	return a, ok
}

func (r *registry) remove(id AssetID) {
	if _, ok := r.assets[id]; !ok {
		return
	}
	delete(r.assets, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// list returns copies of all assets in creation order.
func (r *registry) list() []Asset {
	out := make([]Asset, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.assets[id])
	}
	return out
}
