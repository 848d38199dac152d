// Package shaders compiles GLSL stages and links them into programs.
package shaders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
)

// CompileError carries the compiler log with source numbers replaced by the
// names of the files they came from.
type CompileError struct {
	Stage gpu.ShaderStage
	Name  string
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s shader %s:\n%s", e.Stage, e.Name, e.Log)
}

var (
	// ERROR: 0:12: message
	logPrefixed = regexp.MustCompile(`^(WARNING|ERROR): ([0-9]+):([0-9]+): (.+)`)
	// 0:12(5): error: message
	logMesa = regexp.MustCompile(`^([0-9]+):([0-9]+)\(([0-9]+)\): (.+)`)
	// 0(12) : error C0000: message
	logNvidia = regexp.MustCompile(`^([0-9]+)\(([0-9]+)\) : (.+)`)
)

func sourceName(sources []string, number string) string {
	n, err := strconv.Atoi(number)
	if err != nil || n < 0 || n >= len(sources) {
		return number
	}
	return sources[n]
}

/**
 * @brief Rewrites the source string numbers in a compiler log into the file
 * names they stand for. Lines in an unknown format are kept as they are.
 * @param log The raw info log.
 * @param sources File names indexed by source string number.
 */
func RewriteLog(log string, sources []string) string {
	lines := strings.Split(log, "\n")
	for i, line := range lines {
		if m := logPrefixed.FindStringSubmatch(line); m != nil {
			lines[i] = fmt.Sprintf("%s: %s:%s: %s", m[1], sourceName(sources, m[2]), m[3], m[4])
		} else if m := logMesa.FindStringSubmatch(line); m != nil {
			lines[i] = fmt.Sprintf("%s:%s(%s): %s", sourceName(sources, m[1]), m[2], m[3], m[4])
		} else if m := logNvidia.FindStringSubmatch(line); m != nil {
			lines[i] = fmt.Sprintf("%s(%s) : %s", sourceName(sources, m[1]), m[2], m[3])
		}
	}
	return strings.Join(lines, "\n")
}

// Shader is one compiled stage.
type Shader struct {
	resource.Base

	handle  gpu.Handle
	stage   gpu.ShaderStage
	sources []string
}

/**
 * @brief Compiles a stage.
 * @param sources The files the preprocessed source was assembled from, the
 * first being the stage itself. Used to map diagnostics back to files.
 * @param glsl The complete source including the version header.
 */
func NewShader(ctx *gpu.Context, stage gpu.ShaderStage, sources []string, glsl string) (*Shader, error) {
	handle, infoLog, ok := ctx.CompileShader(stage, glsl)
	name := ""
	if len(sources) > 0 {
		name = sources[0]
	}
	if !ok {
		return nil, &CompileError{Stage: stage, Name: name, Log: RewriteLog(infoLog, sources)}
	}
	s := &Shader{handle: handle, stage: stage, sources: sources}
	s.Init(ctx.Resources, "Shader:"+name, func() {
		ctx.DeleteShader(s.handle)
	})
	return s, nil
}

func (s *Shader) Handle() gpu.Handle {
	return s.handle
}

func (s *Shader) Stage() gpu.ShaderStage {
	return s.stage
}

// Sources lists the files this stage was built from.
func (s *Shader) Sources() []string {
	return s.sources
}

// Uses reports whether path contributed to this stage.
func (s *Shader) Uses(path string) bool {
	for _, src := range s.sources {
		if src == path {
			return true
		}
	}
	return false
}
