package viewer

//OpenGL point and wireframe rendering of the particle buffer
import (
	"fmt"
	"strings"
	"unsafe"

	"diesel.com/raysph/fluid"
	"diesel.com/raysph/geometry"
	"diesel.com/raysph/utils"
	vector "diesel.com/raysph/vector"
	"github.com/go-gl/gl/v4.1-core/gl"
)

const vertexShaderSource = `
#version 410 core
layout(location = 0) in vec3 vp;
uniform mat4 viewProj;
void main() {
	gl_Position = viewProj * vec4(vp, 1.0);
}
` + "\x00"

const fragmentShaderSource = `
#version 410 core
uniform vec4 color;
out vec4 frag;
void main() {
	frag = color;
}
` + "\x00"

const vec32Size = int(unsafe.Sizeof(vector.Vec32{}))

//PointRenderer - draws the container as lines and every particle as a point. VBO[0] is
//the DYNAMIC_DRAW particle buffer, VBO[1] the STATIC_DRAW container edges.
type PointRenderer struct {
	PrgID       uint32
	VAO         [2]uint32
	VBO         [2]uint32
	ViewProjLoc int32
	ColorLoc    int32
	PointSize   float32

	count   int
	lines   int32
	staging []vector.Vec32
}

//NewPointRenderer - needs a current GL context
func NewPointRenderer(count int, container geometry.Box, pointSize float32) (*PointRenderer, error) {
	vtx, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	frg, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, err
	}
	prog, err := linkProgram(vtx, frg)
	if err != nil {
		return nil, err
	}

	r := &PointRenderer{
		PrgID:       prog,
		ViewProjLoc: gl.GetUniformLocation(prog, gl.Str("viewProj\x00")),
		ColorLoc:    gl.GetUniformLocation(prog, gl.Str("color\x00")),
		PointSize:   pointSize,
		count:       count,
		staging:     make([]vector.Vec32, count),
	}
	r.MakeVAO(container.Wireframe())

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.DEPTH_TEST)
	return r, nil
}

//MakeVAO - allocates the particle buffer and uploads the container edges
func (r *PointRenderer) MakeVAO(wire []vector.Vec32) {
	gl.GenBuffers(2, &r.VBO[0])
	gl.GenVertexArrays(2, &r.VAO[0])

	gl.BindVertexArray(r.VAO[0])
	gl.BindBuffer(gl.ARRAY_BUFFER, r.VBO[0])
	gl.BufferData(gl.ARRAY_BUFFER, r.count*vec32Size, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 0, nil)

	gl.BindVertexArray(r.VAO[1])
	gl.BindBuffer(gl.ARRAY_BUFFER, r.VBO[1])
	gl.BufferData(gl.ARRAY_BUFFER, len(wire)*vec32Size, gl.Ptr(&wire[0][0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 0, nil)
	r.lines = int32(len(wire))

	gl.BindVertexArray(0)
}

//DrawParticles - streams the particle positions into VBO[0] and draws the frame with the
//view projection of its slot
func (r *PointRenderer) DrawParticles(particles []fluid.Particle, frame *fluid.FrameConstants) error {
	if len(particles) != r.count {
		return fmt.Errorf("renderer sized for %d particles, got %d", r.count, len(particles))
	}

	gl.ClearColor(0.9, 0.9, 0.9, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(r.PrgID)
	gl.UniformMatrix4fv(r.ViewProjLoc, 1, false, &frame.ViewProj[0])

	gl.Uniform4f(r.ColorLoc, 0.2, 0.2, 0.2, 1.0)
	gl.BindVertexArray(r.VAO[1])
	gl.DrawArrays(gl.LINES, 0, r.lines)

	r.staging = utils.PackPositions(r.staging, particles, func(p *fluid.Particle) vector.Vec32 {
		return p.Position
	})
	gl.BindVertexArray(r.VAO[0])
	gl.BindBuffer(gl.ARRAY_BUFFER, r.VBO[0])
	ptr := gl.MapBufferRange(gl.ARRAY_BUFFER, 0, r.count*vec32Size, gl.MAP_WRITE_BIT|gl.MAP_INVALIDATE_BUFFER_BIT)
	err := utils.TransferPositionData(ptr, r.staging, r.count)
	gl.UnmapBuffer(gl.ARRAY_BUFFER)
	if err != nil {
		return err
	}

	gl.Uniform4f(r.ColorLoc, 0.1, 0.35, 0.8, 0.8)
	gl.PointSize(r.PointSize)
	gl.DrawArrays(gl.POINTS, 0, int32(r.count))
	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x drawing particles", code)
	}
	return nil
}

//Delete - releases the GL objects
func (r *PointRenderer) Delete() {
	gl.DeleteVertexArrays(2, &r.VAO[0])
	gl.DeleteBuffers(2, &r.VBO[0])
	gl.DeleteProgram(r.PrgID)
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("GLSL shader failed to compile: %v", log)
	}
	return shader, nil
}

func linkProgram(shaders ...uint32) (uint32, error) {
	prog := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(prog, s)
	}
	gl.LinkProgram(prog)
	for _, s := range shaders {
		gl.DeleteShader(s)
	}

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("GLSL program failed to link: %v", log)
	}
	return prog, nil
}
