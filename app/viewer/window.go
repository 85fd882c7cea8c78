package viewer

//GLFW window, input callbacks and the interactive frame loop
import (
	"fmt"
	"math"
	"runtime"
	"time"

	"diesel.com/raysph/app"
	"diesel.com/raysph/config"
	"diesel.com/raysph/fluid"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/sirupsen/logrus"
)

type AppWindow struct {
	Width  int
	Height int
	Name   string
}

//input - mouse drag orbits, scroll zooms, Q/E tilt the screen and gravity with it
type input struct {
	cam       *app.OrbitCamera
	home      app.OrbitCamera
	holdMouse bool
	xT, yT    float64
	paused    bool
}

//InitGLFW - window with a 4.1 core context made current on the calling thread
func InitGLFW(a *AppWindow) (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, err
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(a.Width, a.Height, a.Name, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	return window, nil
}

func (in *input) ProcessInput(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Release {
		return
	}
	const step = 0.05
	switch key {
	case glfw.KeyEscape:
		w.SetShouldClose(true)
	case glfw.KeySpace:
		if action == glfw.Press {
			in.paused = !in.paused
		}
	case glfw.KeyQ:
		in.cam.Tilt(step)
	case glfw.KeyE:
		in.cam.Tilt(-step)
	case glfw.KeyW:
		in.cam.Zoom(1 - step)
	case glfw.KeyS:
		in.cam.Zoom(1 + step)
	case glfw.KeyA:
		in.cam.Rotate(-step, 0)
	case glfw.KeyD:
		in.cam.Rotate(step, 0)
	case glfw.KeyR:
		*in.cam = in.home
	}
}

func (in *input) ProcessMouse(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	switch action {
	case glfw.Press:
		in.holdMouse = true
		in.xT, in.yT = w.GetCursorPos()
	case glfw.Release:
		in.holdMouse = false
	}
}

func (in *input) ProcessCursor(w *glfw.Window, xPos float64, yPos float64) {
	if !in.holdMouse {
		return
	}
	in.cam.Rotate(float32(in.xT-xPos)/200, float32(yPos-in.yT)/200)
	in.xT, in.yT = xPos, yPos
}

func (in *input) ProcessScroll(w *glfw.Window, xoff float64, yoff float64) {
	in.cam.Zoom(float32(math.Pow(0.9, yoff)))
}

//Run - opens the window and advances the scene once per displayed frame until the
//window closes. Must be called from the main goroutine.
func Run(scene *app.Scene, win config.WindowConfig, log logrus.FieldLogger) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	window, err := InitGLFW(&AppWindow{win.Width, win.Height, win.Title})
	if err != nil {
		return fmt.Errorf("could not create GLFW window: %w", err)
	}
	defer glfw.Terminate()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("could not initialize OpenGL: %w", err)
	}
	log.WithField("version", gl.GoStr(gl.GetString(gl.VERSION))).Info("OpenGL context")

	sim := scene.Simulation()
	container := scene.Container()
	renderer, err := NewPointRenderer(sim.Count(), container, 3)
	if err != nil {
		return err
	}
	defer renderer.Delete()
	sim.SetVisualizer(renderer)
	defer sim.SetVisualizer(nil)

	fbW, fbH := window.GetFramebufferSize()
	extent := max(container.Width, container.Height, container.Depth)
	cam := app.NewOrbitCamera(container.Origin, 2.5*extent, float32(fbW)/float32(fbH))
	in := &input{cam: cam, home: *cam}

	window.SetKeyCallback(in.ProcessInput)
	window.SetMouseButtonCallback(in.ProcessMouse)
	window.SetCursorPosCallback(in.ProcessCursor)
	window.SetScrollCallback(in.ProcessScroll)
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width int, height int) {
		gl.Viewport(0, 0, int32(width), int32(height))
		if height > 0 {
			cam.Aspect = float32(width) / float32(height)
		}
	})
	gl.Viewport(0, 0, int32(fbW), int32(fbH))

	lastReport := time.Now()
	reported := scene.Anim.FrameCount
	for !window.ShouldClose() {
		elapsed := float32(time.Since(scene.Anim.LastFrame).Seconds())
		state := fluid.CameraState{ViewProj: cam.ViewProj(), GravityDir: cam.GravityDir()}
		if in.paused {
			frame := fluid.FrameConstants{ViewProj: state.ViewProj}
			if err := renderer.DrawParticles(sim.Particles(), &frame); err != nil {
				return err
			}
			scene.Anim.LastFrame = time.Now()
		} else if err := scene.Step(elapsed, &state); err != nil {
			return err
		}

		window.SwapBuffers()
		glfw.PollEvents()

		if since := time.Since(lastReport); since >= time.Second {
			frames := scene.Anim.FrameCount - reported
			log.WithFields(logrus.Fields{
				"fps":      float64(frames) / since.Seconds(),
				"sim_time": scene.Anim.SimTime,
			}).Debug("render loop")
			lastReport, reported = time.Now(), scene.Anim.FrameCount
		}
	}
	return nil
}
