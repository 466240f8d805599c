package arena

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"sort"

	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/lafriks/go-tiled"
)

//go:embed arena.tmx
var files embed.FS

// DefaultPath is the embedded field map.
const DefaultPath = "arena.tmx"

// Object group names read from the map.
const (
	groupWalls  = "walls"
	groupGoals  = "goals"
	groupBall   = "ball"
	groupSpawns = "spawns"
)

// LoadDefault parses the embedded arena.
func LoadDefault() (*Arena, error) {
	return Load(files, DefaultPath)
}

// Load parses a TMX file. It takes an fs.FS so callers can pass the embedded
// map or os.DirFS for a custom one.
func Load(fsys fs.FS, tmxPath string) (*Arena, error) {
	m, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}

	a := &Arena{
		Width:   float64(m.Width * m.TileWidth),
		Height:  float64(m.Height * m.TileHeight),
		Goals:   make(map[netconfig.Team]gamemath.Rect),
		Kickoff: gamemath.Vec2{X: float64(m.Width*m.TileWidth) / 2, Y: float64(m.Height*m.TileHeight) / 2},
		Layouts: make(map[int][]Layout),
	}

	layouts := make(map[string]*Layout)
	for _, og := range m.ObjectGroups {
		switch og.Name {
		case groupWalls:
			for _, o := range og.Objects {
				a.Walls = append(a.Walls, gamemath.RectFromXYWH(o.X, o.Y, o.Width, o.Height))
			}
		case groupGoals:
			for _, o := range og.Objects {
				team, ok := netconfig.ParseTeam(o.Properties.GetString("team"))
				if !ok {
					return nil, fmt.Errorf("goal %q: bad team %q", o.Name, o.Properties.GetString("team"))
				}
				a.Goals[team] = gamemath.RectFromXYWH(o.X, o.Y, o.Width, o.Height)
			}
		case groupBall:
			if len(og.Objects) > 0 {
				a.Kickoff = gamemath.Vec2{X: og.Objects[0].X, Y: og.Objects[0].Y}
			}
		case groupSpawns:
			if err := readSpawns(og.Objects, layouts); err != nil {
				return nil, err
			}
		}
	}

	for _, l := range layouts {
		a.Layouts[l.Size] = append(a.Layouts[l.Size], *l)
	}
	for size := range a.Layouts {
		sort.Slice(a.Layouts[size], func(i, j int) bool {
			return a.Layouts[size][i].Name < a.Layouts[size][j].Name
		})
	}

	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("arena %s: %w", tmxPath, err)
	}
	return a, nil
}

type slotEntry struct {
	order int
	slot  Slot
}

func readSpawns(objects []*tiled.Object, layouts map[string]*Layout) error {
	entries := make(map[string]map[netconfig.Team][]slotEntry)
	for _, o := range objects {
		name := o.Properties.GetString("layout")
		size := o.Properties.GetInt("size")
		team, ok := netconfig.ParseTeam(o.Properties.GetString("team"))
		if name == "" || size <= 0 || !ok {
			return fmt.Errorf("spawn %q: needs layout, size and team", o.Name)
		}
		l, exists := layouts[name]
		if !exists {
			l = &Layout{Name: name, Size: size, Slots: make(map[netconfig.Team][]Slot)}
			layouts[name] = l
			entries[name] = make(map[netconfig.Team][]slotEntry)
		}
		if l.Size != size {
			return fmt.Errorf("spawn %q: layout %q size %d conflicts with %d", o.Name, name, size, l.Size)
		}
		entries[name][team] = append(entries[name][team], slotEntry{
			order: o.Properties.GetInt("slot"),
			slot: Slot{
				Pos:   gamemath.Vec2{X: o.X, Y: o.Y},
				Angle: gamemath.WrapAngle(o.Rotation * math.Pi / 180),
			},
		})
	}

	for name, byTeam := range entries {
		for team, es := range byTeam {
			sort.SliceStable(es, func(i, j int) bool { return es[i].order < es[j].order })
			slots := make([]Slot, len(es))
			for i, e := range es {
				slots[i] = e.slot
			}
			layouts[name].Slots[team] = slots
		}
	}
	return nil
}
