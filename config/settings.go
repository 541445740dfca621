// Package config loads solver, scene and server settings from YAML or TOML
// and watches the file for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"voxelradiosity/core"
	"voxelradiosity/logger"
	"voxelradiosity/solver"
)

type Settings struct {
	Solver SolverSettings `json:"solver" yaml:"solver" toml:"solver"`
	Scene  SceneSettings  `json:"scene" yaml:"scene" toml:"scene"`
	Server ServerSettings `json:"server" yaml:"server" toml:"server"`
}

type SolverSettings struct {
	Workers            int     `json:"workers" yaml:"workers" toml:"workers"`
	Quantize           bool    `json:"quantize" yaml:"quantize" toml:"quantize"`
	CachePath          string  `json:"cachePath" yaml:"cachePath" toml:"cachePath"`
	PreviewIntervalMs  int     `json:"previewIntervalMs" yaml:"previewIntervalMs" toml:"previewIntervalMs"`
	IdleTimeoutMs      int     `json:"idleTimeoutMs" yaml:"idleTimeoutMs" toml:"idleTimeoutMs"`
	ConvergenceEpsilon float32 `json:"convergenceEpsilon" yaml:"convergenceEpsilon" toml:"convergenceEpsilon"`
	MaxIterations      int     `json:"maxIterations" yaml:"maxIterations" toml:"maxIterations"`
}

type SceneSettings struct {
	Map          string          `json:"map" yaml:"map" toml:"map"`
	Demo         string          `json:"demo" yaml:"demo" toml:"demo"`
	StripeWidth  int             `json:"stripeWidth" yaml:"stripeWidth" toml:"stripeWidth"`
	StripeColors [2][3]float32   `json:"stripeColors" yaml:"stripeColors" toml:"stripeColors"`
	Lighting     bool            `json:"lighting" yaml:"lighting" toml:"lighting"`
	Lights       []LightSettings `json:"lights" yaml:"lights" toml:"lights"`
	Emitters     []EmitterConfig `json:"emitters" yaml:"emitters" toml:"emitters"`
}

type LightSettings struct {
	ID       int        `json:"id" yaml:"id" toml:"id"`
	Position [3]float32 `json:"position" yaml:"position" toml:"position"`
	Color    [3]float32 `json:"color" yaml:"color" toml:"color"`
}

// EmitterConfig makes planes facing Dir inside the cell box [Min, Max] emit
type EmitterConfig struct {
	Min   [3]int     `json:"min" yaml:"min" toml:"min"`
	Max   [3]int     `json:"max" yaml:"max" toml:"max"`
	Dir   string     `json:"dir" yaml:"dir" toml:"dir"`
	Color [3]float32 `json:"color" yaml:"color" toml:"color"`
}

type ServerSettings struct {
	Addr             string `json:"addr" yaml:"addr" toml:"addr"`
	UpdateIntervalMs int    `json:"updateIntervalMs" yaml:"updateIntervalMs" toml:"updateIntervalMs"`
}

// Default returns the settings used for anything a file leaves out
func Default() Settings {
	return Settings{
		Solver: SolverSettings{
			CachePath:          "formfactors.cache",
			PreviewIntervalMs:  1000,
			IdleTimeoutMs:      50,
			ConvergenceEpsilon: 1e-5,
		},
		Scene: SceneSettings{
			Demo:         "room",
			StripeWidth:  4,
			StripeColors: [2][3]float32{{0.8, 0.8, 0.8}, {0.8, 0.3, 0.3}},
			Lighting:     true,
		},
		Server: ServerSettings{
			Addr:             ":8080",
			UpdateIntervalMs: 100,
		},
	}
}

// Load reads path over the defaults. The extension picks the format. A
// missing file is not an error.
func Load(path string) (*Settings, error) {
	settings := Default()
	if path == "" {
		return &settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Logger().Info("no settings file found, using defaults", "path", path)
			return &settings, nil
		}
		return nil, err
	}
	if err := Decode(path, data, &settings); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Logger().Info("loaded settings", "path", path, "scene", settings.sceneName(), "quantize", settings.Solver.Quantize)
	return &settings, nil
}

// Decode unmarshals data into s using the codec for path's extension
func Decode(path string, data []byte, s *Settings) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, s)
	case ".toml":
		return toml.Unmarshal(data, s)
	}
	return fmt.Errorf("unsupported settings format %q", filepath.Ext(path))
}

// Validate checks the fields that have no sensible fallback
func (s *Settings) Validate() error {
	if s.Solver.Workers < 0 {
		return fmt.Errorf("solver.workers must not be negative")
	}
	if s.Solver.MaxIterations < 0 {
		return fmt.Errorf("solver.maxIterations must not be negative")
	}
	if s.Scene.StripeWidth <= 0 {
		return fmt.Errorf("scene.stripeWidth must be positive")
	}
	if s.Scene.Map == "" && s.Scene.Demo == "" {
		return fmt.Errorf("scene needs a map or a demo")
	}
	for i, e := range s.Scene.Emitters {
		if _, err := core.ParseDirection(e.Dir); err != nil {
			return fmt.Errorf("scene.emitters[%d]: %w", i, err)
		}
	}
	if s.Server.UpdateIntervalMs <= 0 {
		return fmt.Errorf("server.updateIntervalMs must be positive")
	}
	return nil
}

func (s *Settings) sceneName() string {
	if s.Scene.Map != "" {
		return s.Scene.Map
	}
	return s.Scene.Demo
}

// BuildScene loads the map, or the demo scene when no map is set, and applies
// the configured emitters
func (s *Settings) BuildScene() (*core.Scene, error) {
	var scene *core.Scene
	if s.Scene.Map != "" {
		grid, err := core.LoadBinvoxFile(s.Scene.Map)
		if err != nil {
			return nil, err
		}
		scene = core.NewScene(grid)
	} else {
		var err error
		if scene, err = core.DemoScene(s.Scene.Demo); err != nil {
			return nil, err
		}
	}
	for _, e := range s.Scene.Emitters {
		dir, err := core.ParseDirection(e.Dir)
		if err != nil {
			return nil, err
		}
		n := scene.AddEmitter(core.Emitter{
			Min:   core.VoxelCoord{X: e.Min[0], Y: e.Min[1], Z: e.Min[2]},
			Max:   core.VoxelCoord{X: e.Max[0], Y: e.Max[1], Z: e.Max[2]},
			Dir:   dir,
			Color: mgl32.Vec3(e.Color),
		})
		logger.Logger().Debug("emitter applied", "dir", dir, "planes", n)
	}
	return scene, nil
}

// SolverOptions converts the solver and scene sections
func (s *Settings) SolverOptions() solver.Options {
	opts := solver.DefaultOptions()
	opts.Workers = s.Solver.Workers
	opts.Quantize = s.Solver.Quantize
	opts.CachePath = s.Solver.CachePath
	opts.PreviewInterval = time.Duration(s.Solver.PreviewIntervalMs) * time.Millisecond
	opts.IdleTimeout = time.Duration(s.Solver.IdleTimeoutMs) * time.Millisecond
	opts.ConvergenceEpsilon = s.Solver.ConvergenceEpsilon
	opts.MaxIterations = s.Solver.MaxIterations
	opts.StripeWidth = s.Scene.StripeWidth
	opts.StripeA = mgl32.Vec3(s.Scene.StripeColors[0])
	opts.StripeB = mgl32.Vec3(s.Scene.StripeColors[1])
	opts.Lighting = s.Scene.Lighting
	opts.Lights = lightInputs(s.Scene.Lights)
	return opts
}

func lightInputs(lights []LightSettings) []solver.SetPointLight {
	out := make([]solver.SetPointLight, len(lights))
	for i, l := range lights {
		out[i] = solver.SetPointLight{ID: l.ID, Position: mgl32.Vec3(l.Position), Color: mgl32.Vec3(l.Color)}
	}
	return out
}

// Changes lists the solver inputs that turn before into after. Geometry,
// solver and server changes need a restart and are only logged.
func Changes(before, after *Settings) []solver.Input {
	var out []solver.Input
	prev := make(map[int]LightSettings, len(before.Scene.Lights))
	for _, l := range before.Scene.Lights {
		prev[l.ID] = l
	}
	for _, l := range lightInputs(after.Scene.Lights) {
		if p, ok := prev[l.ID]; ok && p.Position == [3]float32(l.Position) && p.Color == [3]float32(l.Color) {
			continue
		}
		out = append(out, l)
	}
	kept := make(map[int]bool, len(after.Scene.Lights))
	for _, l := range after.Scene.Lights {
		kept[l.ID] = true
	}
	for _, l := range before.Scene.Lights {
		if kept[l.ID] {
			continue
		}
		// the solver has no removal input; a black light at the old spot
		// contributes nothing and needs no re-trace
		out = append(out, solver.SetPointLight{ID: l.ID, Position: mgl32.Vec3(l.Position)})
	}
	if before.Scene.StripeColors != after.Scene.StripeColors {
		out = append(out, solver.SetStripeColors{
			A: mgl32.Vec3(after.Scene.StripeColors[0]),
			B: mgl32.Vec3(after.Scene.StripeColors[1]),
		})
	}
	if before.Scene.Lighting != after.Scene.Lighting {
		out = append(out, solver.EnableLighting{Enabled: after.Scene.Lighting})
	}
	if before.Scene.Map != after.Scene.Map || before.Scene.Demo != after.Scene.Demo ||
		before.Scene.StripeWidth != after.Scene.StripeWidth || before.Solver != after.Solver || before.Server != after.Server {
		logger.Logger().Warn("settings changed that need a restart")
	}
	return out
}

// UpdateInterval is how often the server pushes frames
func (s *Settings) UpdateInterval() time.Duration {
	return time.Duration(s.Server.UpdateIntervalMs) * time.Millisecond
}
