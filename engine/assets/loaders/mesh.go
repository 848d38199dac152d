package loaders

import (
	"os"

	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/resources"
)

// MeshLoader parses Wavefront obj files into a mesh builder. The builder is
// not uploaded; callers build it against their own gpu context.
type MeshLoader struct{}

func (ml *MeshLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	scale := float32(1)
	if p, ok := params.(resources.MeshResourceParams); ok && p.Scale != 0 {
		scale = p.Scale
	}

	b, err := meshes.ParseOBJ(string(data), scale)
	if err != nil {
		return nil, err
	}
	return &resources.Resource{
		Type:     resources.ResourceTypeMesh,
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     b,
	}, nil
}

func (ml *MeshLoader) Unload(*resources.Resource) error {
	return nil
}
