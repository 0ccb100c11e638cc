package glcompute

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// program is a linked compute shader program.
type program struct {
	ID uint32
}

func newProgram(source string) (*program, error) {
	shader, err := compileShader(source, gl.COMPUTE_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(shader)

	id := gl.CreateProgram()
	gl.AttachShader(id, shader)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)

		return nil, fmt.Errorf("failed to link compute program: %v", log)
	}
	return &program{ID: id}, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
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

		return 0, fmt.Errorf("failed to compile compute shader: %v", log)
	}
	return shader, nil
}

func (p *program) use() { gl.UseProgram(p.ID) }

func (p *program) loc(name string) int32 {
	return gl.GetUniformLocation(p.ID, gl.Str(name+"\x00"))
}

func (p *program) setInt(name string, v int32)     { gl.Uniform1i(p.loc(name), v) }
func (p *program) setUint(name string, v uint32)   { gl.Uniform1ui(p.loc(name), v) }
func (p *program) setFloat(name string, v float32) { gl.Uniform1f(p.loc(name), v) }

func (p *program) setIVec2(name string, v [2]int32) { gl.Uniform2i(p.loc(name), v[0], v[1]) }
func (p *program) setIVec3(name string, v [3]int32) { gl.Uniform3i(p.loc(name), v[0], v[1], v[2]) }
func (p *program) setVec2(name string, v [2]float32) {
	gl.Uniform2f(p.loc(name), v[0], v[1])
}
func (p *program) setVec3(name string, v [3]float32) {
	gl.Uniform3f(p.loc(name), v[0], v[1], v[2])
}

func (p *program) delete() {
	if p.ID != 0 {
		gl.DeleteProgram(p.ID)
		p.ID = 0
	}
}
