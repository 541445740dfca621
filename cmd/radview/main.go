// Command radview renders the radiosity solution of a scene with raylib and
// lets the point light be moved with the keyboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"voxelradiosity/config"
	"voxelradiosity/logger"
	"voxelradiosity/solver"
)

func main() {
	runtime.LockOSThread()

	var (
		configPath = flag.String("config", "settings.yaml", "settings file")
		width      = flag.Int("width", 1280, "Window width")
		height     = flag.Int("height", 720, "Window height")
		lightStep  = flag.Float64("step", 0.25, "Light movement per frame while a key is held")
	)
	flag.Parse()
	logger.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	scene, err := settings.BuildScene()
	if err != nil {
		log.Fatalf("Failed to build scene: %v", err)
	}

	opts := settings.SolverOptions()
	light := solver.SetPointLight{Position: sceneCenter(scene.Grid.Size().Vec3()), Color: mgl32.Vec3{3, 3, 3}}
	if len(opts.Lights) > 0 {
		light = opts.Lights[0]
	} else {
		opts.Lights = []solver.SetPointLight{light}
	}

	s, recv := solver.New(scene, opts)
	s.Start()

	var status atomic.Value
	status.Store("starting")
	go func() {
		for ev := range recv.Events() {
			if st, ok := ev.(solver.StatusUpdate); ok {
				status.Store(st.Text)
			}
		}
	}()

	rl.InitWindow(int32(*width), int32(*height), "voxel radiosity")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	size := scene.Grid.Size().Vec3()
	camera := rl.Camera3D{
		Position:   rl.NewVector3(size[0]*1.2, size[1]*1.5, size[2]*1.2),
		Target:     toRL(sceneCenter(size)),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       60,
		Projection: rl.CameraPerspective,
	}

	colors := make([]rl.Color, scene.Len())
	lighting := opts.Lighting
	var lightMove, lightToggle solver.PendingInput
	step := float32(*lightStep)
	for !rl.WindowShouldClose() {
		rl.UpdateCamera(&camera, rl.CameraOrbital)

		if moved, next := moveLight(light.Position, step); moved {
			light.Position = next
			lightMove.Set(light)
		}
		if rl.IsKeyPressed(rl.KeyL) {
			lighting = !lighting
			lightToggle.Set(solver.EnableLighting{Enabled: lighting})
		}
		// a full queue keeps inputs pending for the next frame
		lightMove.Flush(s)
		lightToggle.Flush(s)

		s.Buffer().Read(func(r, g, b []float32) {
			for i := range colors {
				colors[i] = rl.NewColor(toneMap(r[i]), toneMap(g[i]), toneMap(b[i]), 255)
			}
		})

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		rl.BeginMode3D(camera)
		for i, p := range scene.Planes {
			v := p.Vertices
			a, b, c, d := scene.Vertices[v[0]], scene.Vertices[v[1]], scene.Vertices[v[2]], scene.Vertices[v[3]]
			rl.DrawTriangle3D(toRL(a), toRL(b), toRL(c), colors[i])
			rl.DrawTriangle3D(toRL(a), toRL(c), toRL(d), colors[i])
		}
		rl.DrawSphere(toRL(light.Position), 0.15, rl.Yellow)
		rl.EndMode3D()

		rl.DrawFPS(10, 10)
		rl.DrawText(fmt.Sprintf("iteration %d  %s", s.Buffer().Iteration(), status.Load()), 10, 34, 18, rl.RayWhite)
		rl.DrawText("arrows/PgUp/PgDn: move light  L: toggle lighting", 10, 56, 18, rl.Gray)
		rl.EndDrawing()
	}

	recv.Close()
	if err := s.Wait(); err != nil {
		log.Printf("solver: %v", err)
	}
}

func sceneCenter(size mgl32.Vec3) mgl32.Vec3 {
	return size.Mul(0.5)
}

func toRL(v mgl32.Vec3) rl.Vector3 {
	return rl.NewVector3(v[0], v[1], v[2])
}

// moveLight applies the held arrow and page keys
func moveLight(pos mgl32.Vec3, step float32) (bool, mgl32.Vec3) {
	var d mgl32.Vec3
	if rl.IsKeyDown(rl.KeyRight) {
		d[0] += step
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		d[0] -= step
	}
	if rl.IsKeyDown(rl.KeyUp) {
		d[2] -= step
	}
	if rl.IsKeyDown(rl.KeyDown) {
		d[2] += step
	}
	if rl.IsKeyDown(rl.KeyPageUp) {
		d[1] += step
	}
	if rl.IsKeyDown(rl.KeyPageDown) {
		d[1] -= step
	}
	if d == (mgl32.Vec3{}) {
		return false, pos
	}
	return true, pos.Add(d)
}
