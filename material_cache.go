package blockview

import "context"

// MaterialCache creates one backend material per distinct MaterialKey.
type MaterialCache struct {
	backend Backend
	cache   *flightCache[AssetId]
}

func NewMaterialCache(backend Backend) *MaterialCache {
	return &MaterialCache{backend: backend, cache: newFlightCache[AssetId]()}
}

func (c *MaterialCache) Get(slot MaterialSlot) (AssetId, error) {
	id, _, err := c.cache.do(context.Background(), slot.Key.String(), func(context.Context) (AssetId, error) {
		desc := MaterialDesc{
			Key:   slot.Key,
			Tint:  slot.Key.Tint,
			Shade: slot.Key.Light.Shade(),
		}
		if slot.Texture != nil {
			desc.Texture = slot.Texture.Asset
		}
		return c.backend.CreateMaterial(desc)
	})
	return id, err
}

// GetAll resolves every slot of a mesh, in slot order.
func (c *MaterialCache) GetAll(slots []MaterialSlot) ([]AssetId, error) {
	ids := make([]AssetId, len(slots))
	for i, s := range slots {
		id, err := c.Get(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (c *MaterialCache) Len() int { return c.cache.len() }

func (c *MaterialCache) Release() {
	for _, id := range c.cache.reset() {
		c.backend.Release(id)
	}
}
