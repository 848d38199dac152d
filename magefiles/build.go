//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderRoot = "assets/shaders"

// Builds the viewer binary into bin/.
func (Build) Engine() error {
	fmt.Println("Building lumen...")
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/lumen", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Validates every top level shader with glslangValidator.
func (Build) Shaders() error {
	return buildShaders()
}

func buildShaders() error {
	entries, err := os.ReadDir(shaderRoot)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".glsl") {
			continue
		}
		stage := "frag"
		if strings.HasPrefix(name, "v-") {
			stage = "vert"
		}
		// includes live in subdirectories and resolve against the shader root
		args := withArgs("-S", stage, "-I"+shaderRoot, filepath.Join(shaderRoot, name))
		if _, err := executeCmd("glslangValidator", args); err != nil {
			return err
		}
	}
	return nil
}
