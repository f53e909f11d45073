package heatmap

// RadarSize is the side length in pixels of the square overview (radar) images.
const RadarSize = 1024.0

// Radar maps world coordinates onto a map's overview image. Values follow
// the overview files shipped with CS2 (pos_x, pos_y, scale).
type Radar struct {
	PosX, PosY, Scale float64
}

// ToPixel converts a world position to radar pixel coordinates.
func (r Radar) ToPixel(x, y float64) (px, py float64) {
	return (x - r.PosX) / r.Scale, (r.PosY - y) / r.Scale
}

var radars = map[string]Radar{
	"de_ancient":  {PosX: -2953, PosY: 2164, Scale: 5},
	"de_anubis":   {PosX: -2796, PosY: 3328, Scale: 5.22},
	"de_dust2":    {PosX: -2476, PosY: 3239, Scale: 4.4},
	"de_inferno":  {PosX: -2087, PosY: 3870, Scale: 4.9},
	"de_mirage":   {PosX: -3230, PosY: 1713, Scale: 5},
	"de_nuke":     {PosX: -3453, PosY: 2887, Scale: 7},
	"de_overpass": {PosX: -4831, PosY: 1781, Scale: 5.2},
	"de_train":    {PosX: -2308, PosY: 2078, Scale: 4.082077},
	"de_vertigo":  {PosX: -3168, PosY: 1762, Scale: 4},
}

// RadarFor returns the calibration of mapName.
func RadarFor(mapName string) (Radar, bool) {
	r, ok := radars[mapName]
	return r, ok
}
