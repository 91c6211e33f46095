package blockview

const (
	MinLightLevel = 0
	MaxLightLevel = 15

	MaxBrightness          float32 = 1.0
	OverworldMinBrightness float32 = 0.2
)

// LightLevel is a block light level in [MinLightLevel, MaxLightLevel].
type LightLevel int

// EffectiveLight combines sky and emitted light. Absent light is full light.
func EffectiveLight(sky, emitted *int) LightLevel {
	if sky == nil && emitted == nil {
		return MaxLightLevel
	}
	l := MinLightLevel
	if sky != nil && *sky > l {
		l = *sky
	}
	if emitted != nil && *emitted > l {
		l = *emitted
	}
	return LightLevel(l).Clamp()
}

func (l LightLevel) Clamp() LightLevel {
	switch {
	case l < MinLightLevel:
		return MinLightLevel
	case l > MaxLightLevel:
		return MaxLightLevel
	}
	return l
}

// Brightness is the shade multiplier applied to a material at this level.
func (l LightLevel) Brightness() float32 {
	step := (MaxBrightness - OverworldMinBrightness) / MaxLightLevel
	return OverworldMinBrightness + float32(l.Clamp())*step
}

// Shade is Brightness as an opaque grey.
func (l LightLevel) Shade() Color {
	b := l.Brightness()
	return Color{b, b, b, 1}
}
